package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/notifyhub/garage-controller/internal/domain"
)

// maxBrokerURLLen is the longest broker URL accepted from stdin.
const maxBrokerURLLen = 127

// ReadBrokerURL prompts on w and reads one broker URL from r. Reading stops
// at a newline, end of input, or after maxBrokerURLLen characters. Bytes
// outside 1..126 are skipped.
func ReadBrokerURL(r io.Reader, w io.Writer) (string, error) {
	if _, err := fmt.Fprintln(w, "Please enter url of mqtt broker"); err != nil {
		return "", err
	}

	br := bufio.NewReader(r)
	line := make([]byte, 0, maxBrokerURLLen)
	for len(line) < maxBrokerURLLen {
		c, err := br.ReadByte()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read broker url: %w", err)
		}
		if c == '\n' {
			break
		}
		if c > 0 && c < 127 {
			line = append(line, c)
		}
	}

	if len(line) == 0 {
		return "", domain.ErrEmptyBrokerURL
	}
	url := string(line)
	if _, err := fmt.Fprintf(w, "Broker url: %s\n", url); err != nil {
		return "", err
	}
	return url, nil
}

// ResolveBroker replaces the FROM_STDIN placeholder with a URL read from r.
// It is a no-op unless MQTT.BrokerFromStdin is set.
func (c *Config) ResolveBroker(r io.Reader, w io.Writer) error {
	if !c.MQTT.BrokerFromStdin {
		return nil
	}
	if c.MQTT.BrokerURL != BrokerFromStdin {
		return domain.ErrConfigMismatch
	}
	url, err := ReadBrokerURL(r, w)
	if err != nil {
		return err
	}
	c.MQTT.BrokerURL = url
	return nil
}
