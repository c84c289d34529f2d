package settings

import (
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/smallbiznis/tradesettle/internal/config"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("settings",
	fx.Provide(NewHolder),
	fx.Provide(func(h *Holder) Provider { return h }),
)

// Holder keeps the latest valid settings and swaps them on file change.
type Holder struct {
	current atomic.Value // holds Settings
}

func NewHolder(cfg config.Config, log *zap.Logger) (*Holder, error) {
	v := viper.New()
	log = log.Named("settings")

	v.SetConfigName("settlement")
	v.SetConfigType("yml")
	if cfg.SettlementConfigPath != "" {
		v.AddConfigPath(cfg.SettlementConfigPath)
	}
	v.AddConfigPath("/etc/tradesettle")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TRADESETTLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("settlement.bankLagDays", DefaultBankLagDays)
	v.SetDefault("settlement.postingGraceDays", DefaultPostingGraceDays)
	v.SetDefault("settlement.invoiceFooterText", "")
	v.SetDefault("settlement.holidays", []string{})

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
		log.Info("settlement.yml not found, using defaults")
	}

	var current Settings
	if err := v.UnmarshalKey("settlement", &current); err != nil {
		return nil, err
	}
	if err := current.Validate(); err != nil {
		return nil, err
	}

	holder := &Holder{}
	holder.current.Store(current)

	if fileFound {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated Settings
			if err := v.UnmarshalKey("settlement", &updated); err != nil {
				log.Warn("settings reload failed", zap.Error(err))
				return
			}
			if err := updated.Validate(); err != nil {
				log.Warn("invalid settings ignored", zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("settings reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

func (h *Holder) Current() Settings {
	return h.current.Load().(Settings)
}

// Replace swaps the held settings after validating them.
func (h *Holder) Replace(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	h.current.Store(s)
	return nil
}
