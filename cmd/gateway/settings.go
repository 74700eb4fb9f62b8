package main

type Settings struct {
	Port        int      `env:"PORT,default=3000"`
	BasePath    string   `env:"BASE_PATH,default=/"`
	LogEncoding string   `env:"LOG_ENCODING,default=console"`
	JWTSecret   string   `env:"JWT_SECRET,required=true"`
	APIKeys     []string `env:"API_KEYS"`

	MongoURI      string `env:"MONGO_URI,default=mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGO_DATABASE,default=shop"`

	AuthTimeoutSeconds int `env:"AUTH_TIMEOUT_SECONDS,default=5"`
}
