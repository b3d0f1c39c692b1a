package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Source describes one listing site to scrape: a registered adapter name
// plus the query URL to fetch.
type Source struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Polling struct {
		DiscoverSeconds int `yaml:"discover_seconds"`
		ReplySeconds    int `yaml:"reply_seconds"`
	} `yaml:"polling"`

	Relevance struct {
		JobTitles []string `yaml:"job_titles"`
		// FailClosed flips the classifier failure policy. Default is
		// fail-open: a classification error treats the posting as relevant,
		// because a missed application costs more than reviewing one extra
		// irrelevant posting. The policy holds for a whole run either way.
		FailClosed bool `yaml:"fail_closed"`
	} `yaml:"relevance"`

	LLM struct {
		Model string `yaml:"model"`
	} `yaml:"llm"`

	Sources []Source `yaml:"sources"`

	Email struct {
		Enabled     bool   `yaml:"enabled"`
		IMAPHost    string `yaml:"imap_host"`
		IMAPPort    int    `yaml:"imap_port"`
		Username    string `yaml:"username"`
		Mailbox     string `yaml:"mailbox"`
		MaxMessages int    `yaml:"max_messages"`
	} `yaml:"email"`

	Submit struct {
		Enabled  bool   `yaml:"enabled"`
		SMTPHost string `yaml:"smtp_host"`
		SMTPPort int    `yaml:"smtp_port"`
		From     string `yaml:"from"`
		To       string `yaml:"to"`
	} `yaml:"submit"`

	Telegram struct {
		Enabled bool  `yaml:"enabled"`
		ChatID  int64 `yaml:"chat_id"`
	} `yaml:"telegram"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}
