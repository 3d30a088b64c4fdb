package shared

type ServerConfig struct {
	Sqlite   SqliteConfig   `mapstructure:"sqlite" validate:"required"`
	Suraksha SurakshaConfig `mapstructure:"suraksha" validate:"required"`
	Twilio   TwilioConfig   `mapstructure:"twilio" validate:"required"`
	Google   GoogleConfig   `mapstructure:"google"`
}

type SqliteConfig struct {
	PassPhrase string `mapstructure:"passPhrase" validate:"required"`
}

type SurakshaConfig struct {
	PrivateKeyPem string         `mapstructure:"privateKeyPem" validate:"required"`
	Cron          CronConfig     `mapstructure:"cron" validate:"required"`
	Listener      ListenerConfig `mapstructure:"listener" validate:"required"`
	Sos           SosConfig      `mapstructure:"sos"`
}

type TwilioConfig struct {
	AccountSid          string `mapstructure:"accountSid" validate:"required"`
	AuthToken           string `mapstructure:"authToken" validate:"required"`
	MessagingServiceSid string `mapstructure:"messagingServiceSid" validate:"required"`
}

type GoogleConfig struct {
	ApplicationCredentials string        `mapstructure:"applicationCredentials"`
	Storage                StorageConfig `mapstructure:"storage"`
}

type CronConfig struct {
	TimeZone string `mapstructure:"timeZone" validate:"required"`
}

type ListenerConfig struct {
	Port int `mapstructure:"port" validate:"required"`
}

type SosConfig struct {
	// CountryCode is prepended to contact numbers with no prefix of their
	// own when composing whatsapp deep links.
	CountryCode string `mapstructure:"countryCode"`

	// FollowUpDelaySeconds is how long to wait before retrying delivery
	// for an alert whose initial send failed. 0 disables follow-ups.
	FollowUpDelaySeconds int `mapstructure:"followUpDelaySeconds"`
}

type StorageConfig struct {
	Bucket                    string      `mapstructure:"bucket" validate:"required_with=EnableSqliteBackupAndSync"`
	Prefix                    string      `mapstructure:"prefix" validate:"required_with=EnableSqliteBackupAndSync"`
	SqliteBackupSchedule      string      `mapstructure:"sqliteBackupSchedule" validate:"required_with=EnableSqliteBackupAndSync"`
	EnableSqliteBackupAndSync interface{} `mapstructure:"enableSqliteBackupAndSync" validate:"omitempty,bool"`
}
