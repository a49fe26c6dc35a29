package postgres

import "fmt"

type Config struct {
	DBHost     string `json:"db_host" env:"STOREFRONT_DB_HOST"`
	DBPort     string `json:"db_port" env:"STOREFRONT_DB_PORT"`
	DBUser     string `json:"db_user" env:"STOREFRONT_DB_USER"`
	DBPassword string `json:"db_password" env:"STOREFRONT_DB_PASSWORD"`
	DBName     string `json:"db_name" env:"STOREFRONT_DB_NAME"`
	SSLMode    string `json:"ssl_mode" env:"STOREFRONT_DB_SSLMODE"`
}

// Enabled reports whether a database was configured at all.
func (c Config) Enabled() bool {
	return c.DBHost != "" && c.DBName != ""
}

func (c Config) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost,
		c.DBPort,
		c.DBUser,
		c.DBPassword,
		c.DBName,
		sslMode,
	)
}
