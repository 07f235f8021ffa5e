package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName          string
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		WorkDir          string
		SecretKey        string
		DefaultFromEmail mail.Address
		FrontendBaseURL  string
		RollbarToken     string
		SendgridApiKey   string

		Server   ServerConfig
		Database DatabaseConfig
		Storage  StorageConfig
		Portal   PortalConfig
	}

	ServerConfig struct {
		Host               string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		InMemory   bool
		Engine     string
		Host       string
		Port       int
		Name       string
		User       string
		Password   string
		DisableTLS bool
	}

	StorageConfig struct {
		Driver   string // local | s3
		Dir      string
		BaseURL  string
		Bucket   string
		Region   string
		Endpoint string
	}

	PortalConfig struct {
		APIBaseURL  string
		SessionPath string
		Mock        bool
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// NewConfig reads the configuration from defaults, the optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed with the upper-cased env, eg: DEV_DATABASE_HOST.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("appName", "Certdesk")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("workDir", ".")
	v.SetDefault("secretKey", "6s$w+ykc1^zu2p&0c!m@f#)trq8r4n=e=_m(a9n3ul@xc(vb+h")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server.host", ":5000")
	v.SetDefault("server.debugHost", ":5001")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)

	v.SetDefault("database.inMemory", true)
	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "certdesk")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.dir", "media")
	v.SetDefault("storage.baseURL", "http://localhost:5000/media")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")

	v.SetDefault("portal.apiBaseURL", "http://localhost:5000/api")
	v.SetDefault("portal.sessionPath", filepath.Join(os.TempDir(), "certdesk-portal.db"))
	v.SetDefault("portal.mock", false)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(v.GetString("workDir"), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	fromEmail, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.mail.ParseAddress(%s): %v", v.GetString("defaultFromEmail"), err)
	}

	return &Config{
		AppName:          v.GetString("appName"),
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		WorkDir:          v.GetString("workDir"),
		SecretKey:        v.GetString("secretKey"),
		DefaultFromEmail: *fromEmail,
		FrontendBaseURL:  strings.TrimSuffix(v.GetString("frontendBaseURL"), "/"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		Server: ServerConfig{
			Host:               v.GetString("server.host"),
			DebugHost:          v.GetString("server.debugHost"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
		},
		Database: DatabaseConfig{
			InMemory:   v.GetBool("database.inMemory"),
			Engine:     v.GetString("database.engine"),
			Host:       v.GetString("database.host"),
			Port:       v.GetInt("database.port"),
			Name:       v.GetString("database.name"),
			User:       v.GetString("database.user"),
			Password:   v.GetString("database.password"),
			DisableTLS: v.GetBool("database.disableTLS"),
		},
		Storage: StorageConfig{
			Driver:   v.GetString("storage.driver"),
			Dir:      v.GetString("storage.dir"),
			BaseURL:  strings.TrimSuffix(v.GetString("storage.baseURL"), "/"),
			Bucket:   v.GetString("storage.bucket"),
			Region:   v.GetString("storage.region"),
			Endpoint: v.GetString("storage.endpoint"),
		},
		Portal: PortalConfig{
			APIBaseURL:  strings.TrimSuffix(v.GetString("portal.apiBaseURL"), "/"),
			SessionPath: v.GetString("portal.sessionPath"),
			Mock:        v.GetBool("portal.mock"),
		},
	}
}

// NewTestConfig returns a Config suited for tests: no .env lookup, in-memory database, local storage.
func NewTestConfig() *Config {
	return &Config{
		AppName:          "Certdesk",
		Env:              "TEST",
		Build:            "test",
		TestMode:         true,
		WorkDir:          ".",
		SecretKey:        "secret",
		DefaultFromEmail: mail.Address{Name: "Certdesk", Address: "noreply@test.cd"},
		FrontendBaseURL:  "http://localhost:3000",
		Server: ServerConfig{
			Host:               ":0",
			ShutdownTimeout:    time.Second,
			JWTExpirationDelta: time.Hour,
		},
		Database: DatabaseConfig{InMemory: true},
		Storage:  StorageConfig{Driver: "local", BaseURL: "http://localhost:5000/media"},
		Portal:   PortalConfig{APIBaseURL: "http://localhost:5000/api", Mock: true},
	}
}
