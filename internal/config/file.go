package config

// File is the HCL schema of blockflow.hcl. Every block and attribute is
// optional; unset values keep their defaults.
type File struct {
	Server    *ServerBlock    `hcl:"server,block"`
	Engine    *EngineBlock    `hcl:"engine,block"`
	Bridge    *BridgeBlock    `hcl:"bridge,block"`
	Log       *LogBlock       `hcl:"log,block"`
	Providers *ProvidersBlock `hcl:"providers,block"`
	Storage   *StorageBlock   `hcl:"storage,block"`
	Database  *DatabaseBlock  `hcl:"database,block"`
}

type ServerBlock struct {
	Addr        string   `hcl:"addr,optional"`
	PublicURL   string   `hcl:"public_url,optional"`
	CORSOrigins []string `hcl:"cors_origins,optional"`
}

type EngineBlock struct {
	Workers         *int   `hcl:"workers,optional"`
	Backend         string `hcl:"backend,optional"`
	StatePath       string `hcl:"state_path,optional"`
	TaskTimeLimit   string `hcl:"task_time_limit,optional"`
	MaxRedeliveries *int   `hcl:"max_redeliveries,optional"`
}

type BridgeBlock struct {
	PollInterval string `hcl:"poll_interval,optional"`
}

type LogBlock struct {
	Level  string `hcl:"level,optional"`
	Format string `hcl:"format,optional"`
}

type ProvidersBlock struct {
	OpenAIAPIKey  string `hcl:"openai_api_key,optional"`
	OpenAIBaseURL string `hcl:"openai_base_url,optional"`
	TextModel     string `hcl:"text_model,optional"`
	ImageModel    string `hcl:"image_model,optional"`
	ImageSize     string `hcl:"image_size,optional"`
	SpeechModel   string `hcl:"speech_model,optional"`
	Voice         string `hcl:"voice,optional"`
}

type StorageBlock struct {
	Backend               string `hcl:"backend,optional"`
	SignedURLExpiry       string `hcl:"signed_url_expiry,optional"`
	Dir                   string `hcl:"dir,optional"`
	Secret                string `hcl:"secret,optional"`
	AzureConnectionString string `hcl:"azure_connection_string,optional"`
	AzureContainer        string `hcl:"azure_container,optional"`
	S3Bucket              string `hcl:"s3_bucket,optional"`
	S3Region              string `hcl:"s3_region,optional"`
	S3Endpoint            string `hcl:"s3_endpoint,optional"`
}

type DatabaseBlock struct {
	Path string `hcl:"path,optional"`
}
