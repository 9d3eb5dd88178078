package configs

import (
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`

	Database struct {
		Driver   string `mapstructure:"driver"`
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		DBName   string `mapstructure:"dbname"`
	} `mapstructure:"database"`

	JWT struct {
		Secret    string `mapstructure:"secret"`
		ExpiresIn int    `mapstructure:"expires_in"` // 过期时间（小时）
	} `mapstructure:"jwt"`

	AI struct {
		APIKey           string  `mapstructure:"api_key"`
		BaseURL          string  `mapstructure:"base_url"`
		Model            string  `mapstructure:"model"`
		MaxTokens        int     `mapstructure:"max_tokens"`
		Temperature      float64 `mapstructure:"temperature"`
		PresencePenalty  float64 `mapstructure:"presence_penalty"`
		FrequencyPenalty float64 `mapstructure:"frequency_penalty"`
		HistoryWindow    int     `mapstructure:"history_window"` // 带入上下文的最近消息条数
		TimeoutSeconds   int     `mapstructure:"timeout_seconds"`
	} `mapstructure:"ai"`

	Paystack struct {
		SecretKey string `mapstructure:"secret_key"`
	} `mapstructure:"paystack"`

	Quota struct {
		FreeDailyLimit int `mapstructure:"free_daily_limit"` // 免费用户每天可用次数
	} `mapstructure:"quota"`
}

// Load 加载配置
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	viper.SetDefault("server.port", "5000")
	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("jwt.expires_in", 72)
	viper.SetDefault("ai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("ai.model", "gpt-3.5-turbo")
	viper.SetDefault("ai.max_tokens", 500)
	viper.SetDefault("ai.temperature", 0.7)
	viper.SetDefault("ai.presence_penalty", 0.1)
	viper.SetDefault("ai.frequency_penalty", 0.1)
	viper.SetDefault("ai.history_window", 8)
	viper.SetDefault("ai.timeout_seconds", 30)
	viper.SetDefault("quota.free_daily_limit", 3)

	// 部署环境通过环境变量覆盖敏感项
	viper.BindEnv("server.port", "PORT")
	viper.BindEnv("jwt.secret", "JWT_SECRET")
	viper.BindEnv("ai.api_key", "OPENAI_API_KEY")
	viper.BindEnv("paystack.secret_key", "PAYSTACK_SECRET_KEY")
	viper.BindEnv("database.host", "DB_HOST")
	viper.BindEnv("database.password", "DB_PASSWORD")

	if err := viper.ReadInConfig(); err != nil {
		// 配置文件缺失时允许仅靠默认值和环境变量启动
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
