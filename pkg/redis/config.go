package redis

type Config struct {
	Host     string `json:"host" env:"STOREFRONT_REDIS_HOST"`
	Port     string `json:"port" env:"STOREFRONT_REDIS_PORT"`
	Password string `json:"password" env:"STOREFRONT_REDIS_PASSWORD"`
	DB       int    `json:"db" env:"STOREFRONT_REDIS_DB"`
}

func (c Config) Enabled() bool {
	return c.Host != ""
}
