package lib

import "fmt"

// Config is built once at startup and never mutated afterward. Every field
// has a sane default; hosts override what they need through options.
type Config struct {
    RomPath       string
    SavePath      string
    Strict        bool
    SampleRate    int
    WindowScale   int
    CPUDebug      uint
    PPUDebug      uint
    APUDebug      uint
}

type ConfigOption func(*Config) error

func defaultConfig() Config {
    return Config{
        Strict:      false,
        SampleRate:  44100,
        WindowScale: 2,
    }
}

// MakeConfig builds an immutable Config from a ROM path and any number of
// options, applied in order.
func MakeConfig(romPath string, options ...ConfigOption) (Config, error) {
    config := defaultConfig()
    config.RomPath = romPath

    for _, option := range options {
        err := option(&config)
        if err != nil {
            return Config{}, fmt.Errorf("invalid configuration: %w", err)
        }
    }

    return config, nil
}

func WithStrict(strict bool) ConfigOption {
    return func(config *Config) error {
        config.Strict = strict
        return nil
    }
}

func WithSampleRate(rate int) ConfigOption {
    return func(config *Config) error {
        if rate <= 0 {
            return fmt.Errorf("sample rate must be positive, got %v", rate)
        }
        config.SampleRate = rate
        return nil
    }
}

func WithWindowScale(scale int) ConfigOption {
    return func(config *Config) error {
        if scale <= 0 {
            return fmt.Errorf("window scale must be positive, got %v", scale)
        }
        config.WindowScale = scale
        return nil
    }
}

func WithSavePath(path string) ConfigOption {
    return func(config *Config) error {
        config.SavePath = path
        return nil
    }
}

func WithDebug(cpu uint, ppu uint, apu uint) ConfigOption {
    return func(config *Config) error {
        config.CPUDebug = cpu
        config.PPUDebug = ppu
        config.APUDebug = apu
        return nil
    }
}
