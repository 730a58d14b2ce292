package env

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

var Env map[string]string

// searchPaths lists the .env locations checked from the repo root and from cmd/<binary>.
var searchPaths = []string{
	".env",
	"../../.env",
	"../../../.env",
}

func GetEnv(key, def string) string {
	if val, ok := Env[key]; ok {
		return val
	}
	// Docker and CI provide plain process env
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// SetupEnvFile loads the first .env file found and exports its values into the
// process environment so that typed config parsing sees them. Containers usually
// have no .env file; that is not an error.
func SetupEnvFile() {
	var err error
	for _, envFile := range searchPaths {
		Env, err = godotenv.Read(envFile)
		if err != nil {
			continue
		}
		for k, v := range Env {
			if _, exists := os.LookupEnv(k); !exists {
				_ = os.Setenv(k, v)
			}
		}
		return
	}

	Env = map[string]string{}
	log.Printf("No .env file found, using process environment only")
}
