package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug    bool
		TestMode bool
		Env      string // DEV (default), TEST, QA, PROD
		Build    string
		AppName  string
		WorkDir  string

		SecretKey                 []byte
		FrontendBaseURL           string
		DefaultFromEmail          mail.Address
		SendgridAPIKey            string
		RollbarToken              string
		PasswordResetTimeoutDelta time.Duration

		Server      ServerConfig
		Database    DatabaseConfig
		Certificate CertificateConfig
	}

	ServerConfig struct {
		Host                      string
		Port                      int
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ShutdownTimeout           time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		Host          string
		Port          int
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	CertificateConfig struct {
		IssuerName        string
		StorageDir        string
		LogoPath          string
		RenderTimeout     time.Duration
		RenderMaxAttempts int

		// RankThresholds optionally overrides the default rank table per path,
		// e.g. {"strategic": {"diamond": 95, "gold": 80, "silver": 65, "bronze": 0}}.
		RankThresholds map[string]map[string]float64
	}
)

func (c DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewConfig loads the app configuration from the environment,
// optionally backed by a config/.env.<env> file.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Shield")
	conf.SetDefault("build", "dev")
	conf.SetDefault("secretKey", "w3+u$v29yoga-nx1)&b7a#o0j%4%yv!yh(sn3$%_fsjbq&0d#k")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.port", 8000)
	conf.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	conf.SetDefault("server.shutdownTimeout", 20*time.Second)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.name", "shield")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", 5432)
	conf.SetDefault("database.user", "shield")
	conf.SetDefault("database.password", "")
	conf.SetDefault("database.disableTLS", true)

	conf.SetDefault("certificate.issuerName", "Shield Certification Board")
	conf.SetDefault("certificate.storageDir", filepath.Join(Getwd(), "var", "certificates"))
	conf.SetDefault("certificate.renderTimeout", 30*time.Second)
	conf.SetDefault("certificate.renderMaxAttempts", 3)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Debug:    conf.GetBool("debug"),
		TestMode: env == "TEST",
		Env:      env,
		Build:    conf.GetString("build"),
		AppName:  conf.GetString("appName"),
		WorkDir:  Getwd(),

		SecretKey:                 []byte(conf.GetString("secretKey")),
		FrontendBaseURL:           conf.GetString("frontendBaseURL"),
		DefaultFromEmail:          mail.Address{Name: conf.GetString("appName"), Address: conf.GetString("defaultFromEmail")},
		SendgridAPIKey:            conf.GetString("sendgridAPIKey"),
		RollbarToken:              conf.GetString("rollbarToken"),
		PasswordResetTimeoutDelta: conf.GetDuration("passwordResetTimeoutDelta"),

		Server: ServerConfig{
			Host:                      conf.GetString("server.host"),
			Port:                      conf.GetInt("server.port"),
			JWTExpirationDelta:        conf.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("server.jwtRefreshExpirationDelta"),
			ShutdownTimeout:           conf.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Name:          conf.GetString("database.name"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetInt("database.port"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
		},
		Certificate: CertificateConfig{
			IssuerName:        conf.GetString("certificate.issuerName"),
			StorageDir:        conf.GetString("certificate.storageDir"),
			LogoPath:          conf.GetString("certificate.logoPath"),
			RenderTimeout:     conf.GetDuration("certificate.renderTimeout"),
			RenderMaxAttempts: conf.GetInt("certificate.renderMaxAttempts"),
			RankThresholds:    getThresholdOverrides(conf),
		},
	}
}

func getThresholdOverrides(conf *viper.Viper) map[string]map[string]float64 {
	raw := conf.GetStringMap("certificate.rankThresholds")
	if len(raw) == 0 {
		return nil
	}
	overrides := make(map[string]map[string]float64, len(raw))
	for path := range raw {
		sub := conf.Sub("certificate.rankThresholds." + path)
		if sub == nil {
			continue
		}
		table := make(map[string]float64)
		for rank := range sub.AllSettings() {
			table[rank] = sub.GetFloat64(rank)
		}
		overrides[path] = table
	}
	return overrides
}
