package datapush

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/smtp"
	"os"
	"strings"
	"time"

	"github.com/jordan-wright/email"

	"USChinaFlights/src/config"
	"USChinaFlights/src/storage"
)

const (
	RETRY_TIMES     = 3
	RETRY_INTERVAL  = 2 * time.Second
	defaultSMTPPort = "465" // SSL
)

// sendFunc 与 (*email.Email).SendWithTLS 对应，测试中替换
type sendFunc func(e *email.Email, addr string, a smtp.Auth, t *tls.Config) error

func sendWithTLS(e *email.Email, addr string, a smtp.Auth, t *tls.Config) error {
	return e.SendWithTLS(addr, a, t)
}

// Mailer 通过 SMTP(TLS) 发送分析报告
type Mailer struct {
	cfg      config.MailConfig
	logger   *storage.Logger
	send     sendFunc
	interval time.Duration
}

func NewMailer(cfg config.MailConfig, logger *storage.Logger) *Mailer {
	if logger == nil {
		logger = storage.NewNopLogger()
	}
	return &Mailer{cfg: cfg, logger: logger, send: sendWithTLS, interval: RETRY_INTERVAL}
}

// BuildMessage 生成邮件，附件必须存在
func (m *Mailer) BuildMessage(body string, attachments ...string) (*email.Email, error) {
	if !m.cfg.Enabled() {
		return nil, errors.New("邮件发送未配置(server/username/recipients)")
	}

	e := email.NewEmail()
	e.From = fmt.Sprintf("US-China Flights <%s>", m.cfg.Username)
	e.To = append([]string(nil), m.cfg.Recipients...)
	e.Subject = m.cfg.Subject
	e.Text = []byte(body)

	for _, path := range attachments {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("附件文件不存在: %w", err)
		}
		if _, err := e.AttachFile(path); err != nil {
			return nil, fmt.Errorf("附件添加失败 %s: %w", path, err)
		}
	}
	return e, nil
}

// Send 发送报告邮件，失败时按 RETRY_TIMES 重试
func (m *Mailer) Send(body string, attachments ...string) error {
	e, err := m.BuildMessage(body, attachments...)
	if err != nil {
		return err
	}

	addr := smtpAddr(m.cfg.Server)
	host := strings.Split(addr, ":")[0]
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, host)

	err = retry(func() error {
		return m.send(e, addr, auth, &tls.Config{ServerName: host})
	}, RETRY_TIMES, m.interval)
	if err != nil {
		return fmt.Errorf("邮件发送失败 (Server: %s): %w", addr, err)
	}
	m.logger.Info("report mailed", "server", addr, "to", strings.Join(e.To, ","), "attachments", len(e.Attachments))
	return nil
}

// smtpAddr 确保服务器地址包含端口
func smtpAddr(server string) string {
	if !strings.Contains(server, ":") {
		return server + ":" + defaultSMTPPort
	}
	return server
}

// 重试函数
func retry(fn func() error, times int, interval time.Duration) error {
	var err error
	for i := 0; i < times; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < times-1 {
			time.Sleep(interval)
		}
	}
	return fmt.Errorf("重试 %d 次后失败: %w", times, err)
}
