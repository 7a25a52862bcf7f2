package config

import (
	"errors"
	"log"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// RenderConfig tunes the document compiler and the headless engine.
type RenderConfig struct {
	PaperWidthMM      float64       `mapstructure:"paperWidthMM"`
	PaperHeightMM     float64       `mapstructure:"paperHeightMM"`
	MarginTopMM       float64       `mapstructure:"marginTopMM"`
	MarginBottomMM    float64       `mapstructure:"marginBottomMM"`
	MarginLeftMM      float64       `mapstructure:"marginLeftMM"`
	MarginRightMM     float64       `mapstructure:"marginRightMM"`
	PreferCSSPageSize bool          `mapstructure:"preferCSSPageSize"`
	SettleDelay       time.Duration `mapstructure:"settleDelay"`
	MaxConcurrent     int           `mapstructure:"maxConcurrent"`
	Timeout           time.Duration `mapstructure:"timeout"`
	ScratchGrace      time.Duration `mapstructure:"scratchGrace"`
	ChromePath        string        `mapstructure:"chromePath"`
}

func DefaultRenderConfig() RenderConfig {
	concurrent := runtime.NumCPU() / 2
	if concurrent < 1 {
		concurrent = 1
	}
	return RenderConfig{
		PaperWidthMM:      210,
		PaperHeightMM:     297,
		MarginTopMM:       30,
		MarginBottomMM:    25,
		MarginLeftMM:      15,
		MarginRightMM:     15,
		PreferCSSPageSize: true,
		SettleDelay:       500 * time.Millisecond,
		MaxConcurrent:     concurrent,
		Timeout:           60 * time.Second,
		ScratchGrace:      5 * time.Second,
	}
}

type RenderConfigHolder struct {
	current atomic.Value // holds RenderConfig
}

// NewStaticRenderConfigHolder wraps a fixed config, mostly for tests.
func NewStaticRenderConfigHolder(cfg RenderConfig) *RenderConfigHolder {
	holder := &RenderConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewRenderConfigHolder() (*RenderConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("render")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/laudo")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RENDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultRenderConfig()
	v.SetDefault("render.paperWidthMM", defaults.PaperWidthMM)
	v.SetDefault("render.paperHeightMM", defaults.PaperHeightMM)
	v.SetDefault("render.marginTopMM", defaults.MarginTopMM)
	v.SetDefault("render.marginBottomMM", defaults.MarginBottomMM)
	v.SetDefault("render.marginLeftMM", defaults.MarginLeftMM)
	v.SetDefault("render.marginRightMM", defaults.MarginRightMM)
	v.SetDefault("render.preferCSSPageSize", defaults.PreferCSSPageSize)
	v.SetDefault("render.settleDelay", defaults.SettleDelay)
	v.SetDefault("render.maxConcurrent", defaults.MaxConcurrent)
	v.SetDefault("render.timeout", defaults.Timeout)
	v.SetDefault("render.scratchGrace", defaults.ScratchGrace)
	v.SetDefault("render.chromePath", "")

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var cfg RenderConfig
	if err := v.UnmarshalKey("render", &cfg); err != nil {
		return nil, err
	}
	if err := validateRenderConfig(cfg); err != nil {
		return nil, err
	}

	holder := &RenderConfigHolder{}
	holder.current.Store(cfg)

	if !fileFound {
		return holder, nil
	}

	// Concurrency changes apply to the next process start; everything else is read per render.
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated RenderConfig
		if err := v.UnmarshalKey("render", &updated); err != nil {
			log.Printf("[render-config] reload failed: %v", err)
			return
		}
		if err := validateRenderConfig(updated); err != nil {
			log.Printf("[render-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[render-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *RenderConfigHolder) Get() RenderConfig {
	if h == nil {
		return DefaultRenderConfig()
	}
	cfg, ok := h.current.Load().(RenderConfig)
	if !ok {
		return DefaultRenderConfig()
	}
	return cfg
}

func validateRenderConfig(cfg RenderConfig) error {
	if cfg.PaperWidthMM <= 0 || cfg.PaperHeightMM <= 0 {
		return errors.New("render.paper size must be positive")
	}
	if cfg.MarginTopMM < 0 || cfg.MarginBottomMM < 0 || cfg.MarginLeftMM < 0 || cfg.MarginRightMM < 0 {
		return errors.New("render.margins cannot be negative")
	}
	if cfg.MaxConcurrent <= 0 {
		return errors.New("render.maxConcurrent must be positive")
	}
	if cfg.Timeout <= 0 {
		return errors.New("render.timeout must be positive")
	}
	if cfg.SettleDelay < 0 || cfg.ScratchGrace < 0 {
		return errors.New("render delays cannot be negative")
	}
	return nil
}
