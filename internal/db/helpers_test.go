package db

import "github.com/qrgate/portal/config"

func configForTest(ssl bool) config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "qrgate",
		Password: "p@ss",
		DBName:   "qrgate_db",
		UseSSL:   ssl,
	}
}
