// Package config loads dictation engine settings from environment
// variables, an optional .env file, and an optional YAML config file, with
// documented defaults for every recognized option.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every recognized runtime option with its resolved value.
type Config struct {
	CaptureChunkMs     int
	CaptureMaxDuration time.Duration
	CaptureDeviceName  string

	AudioMinDuration time.Duration
	AudioMaxDuration time.Duration

	HotkeyTrigger    string
	HotkeyKey        string
	HotkeyModifiers  []string
	HotkeyThreshold  time.Duration
	HotkeyDevicePath string

	STTPrimaryMax        int
	STTSecondaryMax      int
	STTAcquireTimeout    time.Duration
	STTTimeout           time.Duration
	STTReconcileEnabled  bool
	STTReconcileStrategy string
	STTOverlapThreshold  float64

	WatchdogEnabled     bool
	WatchdogWindow      time.Duration
	WatchdogMaxRestarts int
	WatchdogCooldown    time.Duration

	TypingPasteShortcut         string
	TypingChunkSize             int
	TypingInterChunkDelay       time.Duration
	TypingFocusDelay            time.Duration
	TypingNormalizeNewlines     string
	TypingTrimTrailingNewline   bool
	TypingRestoreClipboard      bool
	TypingClipboardOnlyFallback bool
}

// Load resolves configuration in ascending precedence: built-in defaults,
// an optional YAML file at configPath (a missing file is ignored), then
// environment variables of the form DICTATE_SECTION_KEY. An optional .env
// file is loaded into the process environment first, without overriding
// variables already set, so any DICTATE_* entries in it act as
// environment variables.
func Load(configPath string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DICTATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, os.ErrNotExist) {
				return Config{}, err
			}
		}
	}

	return fromViper(v), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("capture.chunk-ms", 20)
	v.SetDefault("capture.max-duration-ms", 60000)
	v.SetDefault("capture.device-name", "")

	v.SetDefault("audio.validation.min-duration-ms", 250)
	v.SetDefault("audio.validation.max-duration-ms", 300000)

	v.SetDefault("hotkey.trigger", "SINGLE_KEY")
	v.SetDefault("hotkey.key", "RIGHT_ALT")
	v.SetDefault("hotkey.modifiers", []string{})
	v.SetDefault("hotkey.threshold-ms", 300)
	v.SetDefault("hotkey.device-path", "/dev/input/event0")

	v.SetDefault("stt.concurrency.primary-max", 4)
	v.SetDefault("stt.concurrency.secondary-max", 2)
	v.SetDefault("stt.concurrency.acquire-timeout-ms", 1000)
	v.SetDefault("stt.timeout-ms", 5000)
	v.SetDefault("stt.reconcile.enabled", false)
	v.SetDefault("stt.reconcile.strategy", "SIMPLE")
	v.SetDefault("stt.reconcile.overlap-threshold", 0.6)

	v.SetDefault("stt.watchdog.enabled", true)
	v.SetDefault("stt.watchdog.window-minutes", 60)
	v.SetDefault("stt.watchdog.max-restarts-per-window", 3)
	v.SetDefault("stt.watchdog.cooldown-minutes", 10)

	v.SetDefault("typing.paste-shortcut", "AUTO")
	v.SetDefault("typing.chunk-size", 4000)
	v.SetDefault("typing.inter-chunk-delay-ms", 120)
	v.SetDefault("typing.focus-delay-ms", 0)
	v.SetDefault("typing.normalize-newlines", "LF")
	v.SetDefault("typing.trim-trailing-newline", true)
	v.SetDefault("typing.restore-clipboard", false)
	v.SetDefault("typing.clipboard-only-fallback", true)
}

func fromViper(v *viper.Viper) Config {
	return Config{
		CaptureChunkMs:     v.GetInt("capture.chunk-ms"),
		CaptureMaxDuration: time.Duration(v.GetInt("capture.max-duration-ms")) * time.Millisecond,
		CaptureDeviceName:  v.GetString("capture.device-name"),

		AudioMinDuration: time.Duration(v.GetInt("audio.validation.min-duration-ms")) * time.Millisecond,
		AudioMaxDuration: time.Duration(v.GetInt("audio.validation.max-duration-ms")) * time.Millisecond,

		HotkeyTrigger:    strings.ToUpper(v.GetString("hotkey.trigger")),
		HotkeyKey:        strings.ToUpper(v.GetString("hotkey.key")),
		HotkeyModifiers:  v.GetStringSlice("hotkey.modifiers"),
		HotkeyThreshold:  time.Duration(v.GetInt("hotkey.threshold-ms")) * time.Millisecond,
		HotkeyDevicePath: v.GetString("hotkey.device-path"),

		STTPrimaryMax:        v.GetInt("stt.concurrency.primary-max"),
		STTSecondaryMax:      v.GetInt("stt.concurrency.secondary-max"),
		STTAcquireTimeout:    time.Duration(v.GetInt("stt.concurrency.acquire-timeout-ms")) * time.Millisecond,
		STTTimeout:           time.Duration(v.GetInt("stt.timeout-ms")) * time.Millisecond,
		STTReconcileEnabled:  v.GetBool("stt.reconcile.enabled"),
		STTReconcileStrategy: strings.ToUpper(v.GetString("stt.reconcile.strategy")),
		STTOverlapThreshold:  v.GetFloat64("stt.reconcile.overlap-threshold"),

		WatchdogEnabled:     v.GetBool("stt.watchdog.enabled"),
		WatchdogWindow:      time.Duration(v.GetInt("stt.watchdog.window-minutes")) * time.Minute,
		WatchdogMaxRestarts: v.GetInt("stt.watchdog.max-restarts-per-window"),
		WatchdogCooldown:    time.Duration(v.GetInt("stt.watchdog.cooldown-minutes")) * time.Minute,

		TypingPasteShortcut:         strings.ToUpper(v.GetString("typing.paste-shortcut")),
		TypingChunkSize:             v.GetInt("typing.chunk-size"),
		TypingInterChunkDelay:       time.Duration(v.GetInt("typing.inter-chunk-delay-ms")) * time.Millisecond,
		TypingFocusDelay:            time.Duration(v.GetInt("typing.focus-delay-ms")) * time.Millisecond,
		TypingNormalizeNewlines:     strings.ToUpper(v.GetString("typing.normalize-newlines")),
		TypingTrimTrailingNewline:   v.GetBool("typing.trim-trailing-newline"),
		TypingRestoreClipboard:      v.GetBool("typing.restore-clipboard"),
		TypingClipboardOnlyFallback: v.GetBool("typing.clipboard-only-fallback"),
	}
}
