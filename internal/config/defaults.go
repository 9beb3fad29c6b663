package config

import (
	"os"
	"path/filepath"
)

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			TempDir:   filepath.Join(os.TempDir(), "webmbot"),
			LogLevel:  "info",
			LogFormat: "text",
		},
		Telegram: TelegramConfig{
			PollTimeoutSeconds: 60,
		},
		Relay: RelayConfig{
			TargetMimeType: "video/webm",
			OutputSuffix:   ".mp4",
			InputExtension: ".webm",
		},
		Transcoder: TranscoderConfig{
			Binary:  "ffmpeg",
			Workers: 2,
		},
		Dispatch: DispatchConfig{
			MaxConcurrent: 8,
			BufferSize:    100,
		},
		Subscribers: SubscribersConfig{
			Enabled: false,
			Backend: "sqlite",
			Path:    "~/.webmbot/subscribers.db",
		},
		Daily: DailyConfig{
			Enabled:  false,
			Schedule: "0 10 * * *",
			Source:   "leetcode",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9464",
			Path:    "/metrics",
		},
	}
}
