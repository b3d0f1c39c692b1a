package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate trims and dedups list fields, applies defaults, and
// reports anything that would make a run misbehave.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Relevance.JobTitles = trimList(out.Relevance.JobTitles)

	if out.App.Port <= 0 {
		out.App.Port = 38472
	}
	if out.LLM.Model == "" {
		out.LLM.Model = "gpt-4o-mini"
	}
	if out.Email.MaxMessages <= 0 {
		out.Email.MaxMessages = 50
	}
	if out.Polling.DiscoverSeconds <= 0 {
		out.Polling.DiscoverSeconds = 6 * 60 * 60
	}
	if out.Polling.ReplySeconds <= 0 {
		out.Polling.ReplySeconds = 15 * 60
	}

	// ---- Validation rules ----

	if out.Polling.DiscoverSeconds < 60 {
		res.addWarn("polling.discover_seconds is very low (%d); listing sites will rate-limit you.", out.Polling.DiscoverSeconds)
	}

	enabled := 0
	seenNames := map[string]bool{}
	for _, s := range out.Sources {
		name := strings.ToLower(strings.TrimSpace(s.Name))
		if name == "" {
			res.addErr("a source entry is missing its name")
			continue
		}
		if seenNames[name] {
			res.addWarn("source %q appears more than once", s.Name)
		}
		seenNames[name] = true
		if !s.Enabled {
			continue
		}
		enabled++
		if strings.TrimSpace(s.URL) == "" {
			res.addErr("source %q is enabled but has no url", s.Name)
		}
	}
	if enabled == 0 {
		res.addWarn("no sources enabled; discovery batches will find nothing")
	}

	if len(out.Relevance.JobTitles) == 0 {
		res.addWarn("relevance.job_titles is empty; the classifier has nothing to match against")
	}

	if out.Email.Enabled {
		if strings.TrimSpace(out.Email.IMAPHost) == "" {
			res.addErr("email.imap_host is required when email.enabled=true")
		}
		if out.Email.IMAPPort == 0 {
			res.addErr("email.imap_port is required when email.enabled=true")
		}
		if strings.TrimSpace(out.Email.Username) == "" {
			res.addErr("email.username is required when email.enabled=true")
		}
		if strings.TrimSpace(out.Email.Mailbox) == "" {
			out.Email.Mailbox = "INBOX"
		}
	}

	if out.Submit.Enabled {
		if strings.TrimSpace(out.Submit.SMTPHost) == "" {
			res.addErr("submit.smtp_host is required when submit.enabled=true")
		}
		if out.Submit.SMTPPort == 0 {
			res.addErr("submit.smtp_port is required when submit.enabled=true")
		}
		if strings.TrimSpace(out.Submit.From) == "" {
			res.addErr("submit.from is required when submit.enabled=true")
		}
		if strings.TrimSpace(out.Submit.To) == "" {
			res.addErr("submit.to is required when submit.enabled=true")
		}
	}

	if out.Telegram.Enabled && out.Telegram.ChatID == 0 {
		res.addErr("telegram.chat_id is required when telegram.enabled=true")
	}

	return out, res
}
