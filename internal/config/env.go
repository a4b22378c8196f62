package config

import "github.com/joho/godotenv"

// LoadEnvFiles reads .env and .env.local from the working directory when
// present. Variables already set by the runtime (e.g. Docker) win.
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}
