package config_test

import (
	"errors"
	"testing"

	"github.com/EdNutting/autocue/internal/config"
	"github.com/EdNutting/autocue/pkg/provider/asr"
	asrmock "github.com/EdNutting/autocue/pkg/provider/asr/mock"
)

func TestLogLevel_IsValid(t *testing.T) {
	t.Parallel()

	for _, l := range []config.LogLevel{config.LogDebug, config.LogInfo, config.LogWarn, config.LogError} {
		if !l.IsValid() {
			t.Errorf("%q.IsValid() = false, want true", l)
		}
	}
	if config.LogLevel("verbose").IsValid() {
		t.Error(`"verbose".IsValid() = true, want false`)
	}
}

func TestTheme_IsValid(t *testing.T) {
	t.Parallel()

	if !config.ThemeDark.IsValid() || !config.ThemeLight.IsValid() {
		t.Error("built-in themes reported invalid")
	}
	if config.Theme("sepia").IsValid() {
		t.Error(`"sepia".IsValid() = true, want false`)
	}
}

func TestRegistry_CreateASR(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	reg.RegisterASR("mock", func(cfg config.ASRConfig) (asr.Provider, error) {
		return &asrmock.Provider{}, nil
	})

	p, err := reg.CreateASR(config.ASRConfig{Provider: "mock"})
	if err != nil {
		t.Fatalf("CreateASR: %v", err)
	}
	if p == nil {
		t.Fatal("CreateASR returned nil provider")
	}
}

func TestRegistry_UnregisteredProvider(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	_, err := reg.CreateASR(config.ASRConfig{Provider: "vosk"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("err = %v, want ErrProviderNotRegistered", err)
	}
}

func TestRegistry_ASRNames(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	reg.RegisterASR("mock", func(cfg config.ASRConfig) (asr.Provider, error) {
		return &asrmock.Provider{}, nil
	})
	reg.RegisterASR("vosk", func(cfg config.ASRConfig) (asr.Provider, error) {
		return &asrmock.Provider{}, nil
	})

	if names := reg.ASRNames(); len(names) != 2 {
		t.Fatalf("len(names) = %d, want 2", len(names))
	}
}
