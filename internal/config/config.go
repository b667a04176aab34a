package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port           string
	AllowedOrigins []string

	OpenAIKey      string
	OpenAIBaseURL  string
	RefineModel    string
	TranslateModel string

	GoogleAPIKey         string
	GoogleSpeechEndpoint string
	GoogleTTSEndpoint    string
	SpeechLanguage       string

	DeepgramKey string
	DeepgramURL string

	BatchFallback bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("allowed_origins", "*")
	v.SetDefault("refine_model", "gpt-4")
	v.SetDefault("translate_model", "gpt-3.5-turbo")
	v.SetDefault("speech_language", "en-US")
	v.SetDefault("batch_fallback", true)
}

// Load reads .env (if present) and the environment. Credentials are not
// required here; a missing key only fails the requests that need it.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return FromViper(v), nil
}

func FromViper(v *viper.Viper) Config {
	return Config{
		Port:           v.GetString("port"),
		AllowedOrigins: splitList(v.GetString("allowed_origins")),

		OpenAIKey:      v.GetString("openai_api_key"),
		OpenAIBaseURL:  v.GetString("openai_base_url"),
		RefineModel:    v.GetString("refine_model"),
		TranslateModel: v.GetString("translate_model"),

		GoogleAPIKey:         v.GetString("google_cloud_api_key"),
		GoogleSpeechEndpoint: v.GetString("google_speech_endpoint"),
		GoogleTTSEndpoint:    v.GetString("google_tts_endpoint"),
		SpeechLanguage:       v.GetString("speech_language"),

		DeepgramKey: v.GetString("deepgram_api_key"),
		DeepgramURL: v.GetString("deepgram_url"),

		BatchFallback: v.GetBool("batch_fallback"),
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
