package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all app-wide settings. It is loaded once at startup from
// defaults, an optional .env file and environment variables (prefixed
// with the current ENV name).
type Config struct {
	Env      string
	AppName  string
	Build    string
	Debug    bool
	TestMode bool

	SecretKey        string
	WorkDir          string
	FrontendBaseURL  string
	AllowedOrigins   []string
	DefaultFromEmail mail.Address

	Server struct {
		Host               string
		Addr               string
		JWTExpirationDelta time.Duration
	}

	// how long a password reset OTP stays valid
	PasswordResetOTPTimeout time.Duration

	Database struct {
		URI  string
		Name string
	}

	SendgridAPIKey string
	RollbarToken   string
}

var Conf *Config

func init() {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "AbleSpace")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "x#2b&0y(q8@v5s=j$+w7lr9!ze_u4ct%dn6ahfm1gpk3io)")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("frontendBaseURL", "http://localhost:5173")
	v.SetDefault("allowedOrigins", []string{"http://localhost:5173"})
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddr", ":8000")
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("passwordResetOTPTimeout", 10*time.Minute)
	v.SetDefault("databaseURI", "mongodb://localhost:27017")
	v.SetDefault("databaseName", "ablespace")
	v.SetDefault("sendgridAPIKey", "")
	v.SetDefault("rollbarToken", "")

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:                     env,
		AppName:                 v.GetString("appName"),
		Build:                   v.GetString("build"),
		Debug:                   v.GetBool("debug"),
		TestMode:                v.GetBool("testMode"),
		SecretKey:               v.GetString("secretKey"),
		WorkDir:                 wd,
		FrontendBaseURL:         v.GetString("frontendBaseURL"),
		AllowedOrigins:          v.GetStringSlice("allowedOrigins"),
		DefaultFromEmail:        mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		PasswordResetOTPTimeout: v.GetDuration("passwordResetOTPTimeout"),
		SendgridAPIKey:          v.GetString("sendgridAPIKey"),
		RollbarToken:            v.GetString("rollbarToken"),
	}
	conf.Server.Host = v.GetString("serverHost")
	conf.Server.Addr = v.GetString("serverAddr")
	conf.Server.JWTExpirationDelta = v.GetDuration("jwtExpirationDelta")
	conf.Database.URI = v.GetString("databaseURI")
	conf.Database.Name = v.GetString("databaseName")
	Conf = conf
}
