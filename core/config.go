package core

import (
	"log"
	"net"
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
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		Env              string
		Build            string
		WorkDir          string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		PasswordResetTimeoutDelta time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Storage  StorageConfig
		Reminder ReminderConfig
	}

	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		BodyLimit                 string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Name          string
		DisableTLS    bool
	}

	// StorageConfig selects where applicant documents live. Backend is "disk" or "minio".
	StorageConfig struct {
		Backend   string
		DiskRoot  string
		Endpoint  string
		AccessKey string
		SecretKey string
		Bucket    string
		UseSSL    bool
	}

	ReminderConfig struct {
		Enabled    bool
		EveryHours uint64
		StaleAfter time.Duration
	}
)

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, db.Port)
}

// NewConfig reads the configuration of the current ENV (DEV (local; default), TEST, QA, PROD).
// Values come from defaults, then `config/.env.<env>` if it exists, then the environment (prefixed with ENV).
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "ETEEAP")
	conf.SetDefault("secretKey", "k2#j9t-vq)x!w8=uf$4n@mz0d6h+e(r1g&ya7c5l*s3b%p")
	conf.SetDefault("build", "develop")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("defaultFromName", "ETEEAP Portal")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	conf.SetDefault("serverHost", "0.0.0.0:8000")
	conf.SetDefault("serverDebugHost", "0.0.0.0:4000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("serverBodyLimit", "130M")
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)

	conf.SetDefault("dbEngine", "postgres")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", "5432")
	conf.SetDefault("dbUser", "eteeap")
	conf.SetDefault("dbPassword", "eteeap")
	conf.SetDefault("dbAdminUser", "postgres")
	conf.SetDefault("dbAdminPassword", "postgres")
	conf.SetDefault("dbName", "eteeap")
	conf.SetDefault("dbDisableTLS", true)

	conf.SetDefault("storageBackend", "disk")
	conf.SetDefault("storageDiskRoot", "documents")
	conf.SetDefault("storageEndpoint", "localhost:9000")
	conf.SetDefault("storageAccessKey", "")
	conf.SetDefault("storageSecretKey", "")
	conf.SetDefault("storageBucket", "eteeap-documents")
	conf.SetDefault("storageUseSSL", false)

	conf.SetDefault("reminderEnabled", true)
	conf.SetDefault("reminderEveryHours", 24)
	conf.SetDefault("reminderStaleAfter", 7*24*time.Hour)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	conf.SetDefault("testMode", env == "TEST")
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	workDir := getwd()
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	diskRoot := conf.GetString("storageDiskRoot")
	if !filepath.IsAbs(diskRoot) {
		diskRoot = filepath.Join(workDir, diskRoot)
	}

	return &Config{
		Debug:           conf.GetBool("debug"),
		TestMode:        conf.GetBool("testMode"),
		AppName:         conf.GetString("appName"),
		SecretKey:       conf.GetString("secretKey"),
		Env:             env,
		Build:           conf.GetString("build"),
		WorkDir:         workDir,
		FrontendBaseURL: conf.GetString("frontendBaseURL"),
		DefaultFromEmail: mail.Address{
			Name:    conf.GetString("defaultFromName"),
			Address: conf.GetString("defaultFromEmail"),
		},
		SendgridApiKey:            conf.GetString("sendgridApiKey"),
		RollbarToken:              conf.GetString("rollbarToken"),
		PasswordResetTimeoutDelta: conf.GetDuration("passwordResetTimeoutDelta"),
		Server: ServerConfig{
			Host:                      conf.GetString("serverHost"),
			DebugHost:                 conf.GetString("serverDebugHost"),
			ShutdownTimeout:           conf.GetDuration("serverShutdownTimeout"),
			BodyLimit:                 conf.GetString("serverBodyLimit"),
			JWTExpirationDelta:        conf.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("dbEngine"),
			Host:          conf.GetString("dbHost"),
			Port:          conf.GetString("dbPort"),
			User:          conf.GetString("dbUser"),
			Password:      conf.GetString("dbPassword"),
			AdminUser:     conf.GetString("dbAdminUser"),
			AdminPassword: conf.GetString("dbAdminPassword"),
			Name:          conf.GetString("dbName"),
			DisableTLS:    conf.GetBool("dbDisableTLS"),
		},
		Storage: StorageConfig{
			Backend:   conf.GetString("storageBackend"),
			DiskRoot:  diskRoot,
			Endpoint:  conf.GetString("storageEndpoint"),
			AccessKey: conf.GetString("storageAccessKey"),
			SecretKey: conf.GetString("storageSecretKey"),
			Bucket:    conf.GetString("storageBucket"),
			UseSSL:    conf.GetBool("storageUseSSL"),
		},
		Reminder: ReminderConfig{
			Enabled:    conf.GetBool("reminderEnabled"),
			EveryHours: uint64(conf.GetInt64("reminderEveryHours")),
			StaleAfter: conf.GetDuration("reminderStaleAfter"),
		},
	}
}

// getwd finds the project root (the directory holding go.mod).
// go test changes the working directory to the package being tested, so we walk up from there.
// Falls back to the working directory when no go.mod is found (e.g. a deployed binary).
func getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if _, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}
