// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package serial_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/go-gsm/gsmta/serial"
)

func modemExists(name string) func(t *testing.T) {
	return func(t *testing.T) {
		if _, err := os.Stat(name); os.IsNotExist(err) {
			t.Skip("no modem available")
		}
	}
}

func TestNew(t *testing.T) {
	patterns := []struct {
		name string
		port string
		baud int
	}{
		{"default", "/dev/ttyUSB0", 115200},
		{"baud", "/dev/ttyUSB0", 9600},
	}
	for _, p := range patterns {
		f := func(t *testing.T) {
			modemExists(p.port)(t)
			m, err := serial.New(p.port, p.baud)
			require.NoError(t, err)
			require.NotNil(t, m)
			if m != nil {
				m.Close()
			}
		}
		t.Run(p.name, f)
	}

	t.Run("bad port", func(t *testing.T) {
		m, err := serial.New("nosuchmodem", 115200)
		require.Error(t, err)
		require.Nil(t, m)
	})
}
