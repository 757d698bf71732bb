package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Media kinds accepted in [main] type
const (
	MediaImage    = "image"
	MediaSolid    = "solid"
	MediaShader   = "shader"
	MediaGradient = "gradient"
)

// Blur kinds accepted in [image] blur_type
const (
	BlurBox      = "box"
	BlurGaussian = "gaussian"
)

const (
	appName        = "shroudlock"
	configFileName = "conf.ini"
	pamPath        = "/etc/pam.d/" + appName
)

// Configuration holds the application settings.
// The same keys are read from INI sections or YAML maps.
type Configuration struct {
	Main   MainSection   `ini:"main" yaml:"main"`
	Image  ImageSection  `ini:"image" yaml:"image"`
	Solid  SolidSection  `ini:"solid" yaml:"solid"`
	Shader ShaderSection `ini:"shader" yaml:"shader"`
	Lock   LockSection   `ini:"lock" yaml:"lock"`
}

// MainSection selects what is painted on every lock surface
type MainSection struct {
	// One of image, solid, shader, gradient
	Type string `ini:"type" yaml:"type"`
}

// ImageSection configures the image media kind
type ImageSection struct {
	Path string `ini:"path" yaml:"path"`

	// Blur radius; 0 disables blurring
	BlurSize int `ini:"blur_size" yaml:"blur_size"`

	// box or gaussian
	BlurType string `ini:"blur_type" yaml:"blur_type"`
}

// SolidSection configures the solid media kind, 0-255 per channel
type SolidSection struct {
	Red   int `ini:"red" yaml:"red"`
	Green int `ini:"green" yaml:"green"`
	Blue  int `ini:"blue" yaml:"blue"`
	Alpha int `ini:"alpha" yaml:"alpha"`
}

// ShaderSection configures the shader media kind
type ShaderSection struct {
	Path string `ini:"path" yaml:"path"`
}

// LockSection holds behaviour around the lock itself
type LockSection struct {
	// PAM service name to use for authentication
	PamService string `ini:"pam_service" yaml:"pam_service"`

	// Command to run before locking the screen
	PreLockCommand string `ini:"pre_lock_command" yaml:"pre_lock_command"`

	// Command to run after unlocking the screen
	PostLockCommand string `ini:"post_lock_command" yaml:"post_lock_command"`

	// Pause MPRIS players when locking
	LockPauseMedia bool `ini:"pause_media" yaml:"pause_media"`

	// Resume players paused by the lock after unlocking
	UnlockUnpauseMedia bool `ini:"unpause_media" yaml:"unpause_media"`

	// Report the lock state to logind (LockedHint)
	LogindHint bool `ini:"logind_hint" yaml:"logind_hint"`

	// Draw typed-character dots and the failure count over the media
	ShowIndicator bool `ini:"show_indicator" yaml:"show_indicator"`

	// Failed attempts before a cooldown kicks in; 0 disables the cooldown
	LockoutThreshold int `ini:"lockout_threshold" yaml:"lockout_threshold"`

	// Length of the cooldown in seconds
	LockoutSeconds int `ini:"lockout_seconds" yaml:"lockout_seconds"`
}

// DefaultConfig returns a configuration with sensible defaults: an opaque
// white solid fill and PAM authentication against system-auth, or against
// the dedicated service file if one is installed.
func DefaultConfig() Configuration {
	pamService := "system-auth"
	if _, err := os.Stat(pamPath); err == nil {
		pamService = appName
	}

	return Configuration{
		Main: MainSection{Type: MediaSolid},
		Image: ImageSection{
			BlurSize: 0,
			BlurType: BlurBox,
		},
		Solid: SolidSection{Red: 255, Green: 255, Blue: 255, Alpha: 255},
		Lock: LockSection{
			PamService:       pamService,
			LogindHint:       true,
			LockoutThreshold: 0, // Disabled by default
			LockoutSeconds:   30,
		},
	}
}

// DefaultPath returns the config file found in the XDG config directories,
// or an error when none exists.
func DefaultPath() (string, error) {
	return xdg.SearchConfigFile(filepath.Join(appName, configFileName))
}

// RuntimeFile returns a path for name inside the XDG runtime directory
func RuntimeFile(name string) (string, error) {
	return xdg.RuntimeFile(filepath.Join(appName, name))
}

// LoadConfig loads configuration from the specified file path on top of
// the values already in config. config is left untouched on error.
func LoadConfig(path string, config *Configuration) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	loaded := *config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &loaded)
	default:
		err = loadINI(data, &loaded)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validateConfig(&loaded); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	*config = loaded
	return nil
}

func loadINI(data []byte, config *Configuration) error {
	file, err := ini.LoadSources(ini.LoadOptions{Insensitive: true}, data)
	if err != nil {
		return err
	}
	return file.StrictMapTo(config)
}

// SaveConfig saves the configuration to the specified file path as INI
func SaveConfig(path string, config Configuration) error {
	if err := validateConfig(&config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	file := ini.Empty()
	if err := ini.ReflectFrom(file, &config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := file.SaveTo(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// validateConfig checks if the configuration is valid
func validateConfig(config *Configuration) error {
	config.Main.Type = strings.ToLower(strings.TrimSpace(config.Main.Type))

	switch config.Main.Type {
	case MediaImage:
		if config.Image.Path == "" {
			return errors.New("image media requires [image] path")
		}
		if config.Image.BlurSize < 0 {
			return errors.New("blur_size must not be negative")
		}
		switch config.Image.BlurType {
		case "", BlurBox, BlurGaussian:
		default:
			return fmt.Errorf("unknown blur_type %q", config.Image.BlurType)
		}
	case MediaSolid:
		channels := map[string]int{
			"red":   config.Solid.Red,
			"green": config.Solid.Green,
			"blue":  config.Solid.Blue,
			"alpha": config.Solid.Alpha,
		}
		for name, v := range channels {
			if v < 0 || v > 255 {
				return fmt.Errorf("solid %s must be within 0-255, got %d", name, v)
			}
		}
	case MediaShader:
		if config.Shader.Path == "" {
			return errors.New("shader media requires [shader] path")
		}
	case MediaGradient:
	case "":
		return errors.New("[main] type is not set")
	default:
		return fmt.Errorf("type %q is not one of image, solid, shader, gradient", config.Main.Type)
	}

	if config.Lock.PamService == "" {
		return errors.New("pam_service must not be empty")
	}
	if config.Lock.LockoutThreshold < 0 {
		return errors.New("lockout_threshold must not be negative")
	}
	if config.Lock.LockoutThreshold > 0 && config.Lock.LockoutSeconds <= 0 {
		return errors.New("lockout_seconds must be positive when lockout is enabled")
	}

	return nil
}

// GenerateDefaultConfigFile creates a default configuration file if it doesn't
// exist and returns its path
func GenerateDefaultConfigFile() (string, error) {
	configPath, err := xdg.ConfigFile(filepath.Join(appName, configFileName))
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	}

	if err := SaveConfig(configPath, DefaultConfig()); err != nil {
		return "", fmt.Errorf("failed to save default config: %w", err)
	}

	return configPath, nil
}
