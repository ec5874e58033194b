package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	RedisURL    string `mapstructure:"REDIS_URL"`
	FrontendURL string `mapstructure:"FRONTEND_URL"`

	JWTSecret     string `mapstructure:"JWT_SECRET"`
	TokenTTLHours int    `mapstructure:"TOKEN_TTL_HOURS"`

	// Uploads
	UploadDir     string `mapstructure:"UPLOAD_DIR"`
	MaxUploadSize int64  `mapstructure:"MAX_UPLOAD_SIZE"`

	// Codabench
	CodabenchAPIURL        string `mapstructure:"CODABENCH_API_URL"`
	CodabenchCompetitionID string `mapstructure:"CODABENCH_COMPETITION_ID"`
	CodabenchSecretKey     string `mapstructure:"CODABENCH_SECRET_KEY"`

	// When the forward to Codabench fails, either propagate the error or
	// record the submission locally as unconfirmed. The latter matches the
	// reference site's behavior and is the default.
	SubmitDegradeGracefully bool `mapstructure:"SUBMIT_DEGRADE_GRACEFULLY"`

	// Status polling
	PollIntervalSeconds int `mapstructure:"POLL_INTERVAL_SECONDS"`
	PollMaxAttempts     int `mapstructure:"POLL_MAX_ATTEMPTS"`

	// Optional S3-compatible artifact store (R2 etc.). When AccountID is
	// empty, uploads go to the local disk under UploadDir.
	S3AccountID       string `mapstructure:"S3_ACCOUNT_ID"`
	S3AccessKeyID     string `mapstructure:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `mapstructure:"S3_SECRET_ACCESS_KEY"`
	S3BucketName      string `mapstructure:"S3_BUCKET_NAME"`
}

var AppConfig *Config

func LoadConfig() {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.SetDefault("PORT", "3000")
	viper.SetDefault("TOKEN_TTL_HOURS", 24)
	viper.SetDefault("UPLOAD_DIR", "uploads")
	viper.SetDefault("MAX_UPLOAD_SIZE", int64(50*1024*1024))
	viper.SetDefault("CODABENCH_API_URL", "https://www.codabench.org/api")
	viper.SetDefault("SUBMIT_DEGRADE_GRACEFULLY", true)
	viper.SetDefault("POLL_INTERVAL_SECONDS", 10)
	viper.SetDefault("POLL_MAX_ATTEMPTS", 30)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Unable to decode config: %v", err)
	}

	if AppConfig.JWTSecret == "" {
		log.Println("WARNING: JWT_SECRET is not set; issued tokens will be unsigned-equivalent")
	}
}
