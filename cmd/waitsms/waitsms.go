// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// waitsms waits for SMSs to be received by the modem, and dumps them to
// stdout.
//
// This provides an example of using the event-driven façade, as well as
// a test that the driver works with the modem.
//
// The modem device provided must support notifications, or no SMSs will
// be seen. (the notification port is typically USB2, hence the default)
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/go-gsm/gsmta/capability"
	"github.com/go-gsm/gsmta/meta"
	"github.com/go-gsm/gsmta/serial"
	"github.com/go-gsm/gsmta/tpdu"
	"github.com/go-gsm/gsmta/trace"
)

func main() {
	dev := flag.String("d", "/dev/ttyUSB2", "path to modem device")
	baud := flag.Int("b", 115200, "baud rate")
	period := flag.Duration("p", 10*time.Minute, "period to wait")
	timeout := flag.Duration("t", 400*time.Millisecond, "command timeout period")
	verbose := flag.Bool("v", false, "log modem interactions")
	hex := flag.Bool("x", false, "hex dump modem responses")
	flag.Parse()

	m, err := serial.New(*dev, *baud)
	if err != nil {
		log.Println(err)
		return
	}
	defer m.Close()
	var mio io.ReadWriter = m
	if *hex {
		mio = trace.New(m, log.New(log.Writer(), "", log.LstdFlags), trace.ReadFormat("r: % X"))
	} else if *verbose {
		mio = trace.New(m, log.New(log.Writer(), "", log.LstdFlags))
	}

	octx, ocancel := context.WithTimeout(context.Background(), *timeout)
	ta, err := meta.Open(octx, mio, meta.Config{})
	ocancel()
	if err != nil {
		log.Println(err)
		return
	}
	ta.SetEventHandler(smsSink{ta: ta})

	rctx, rcancel := context.WithTimeout(context.Background(), *timeout)
	err = ta.SetSMSRoutingToTA(rctx, capability.RoutingRequest{SMS: true})
	rcancel()
	if err != nil {
		log.Println(err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *period)
	defer cancel()
	go pollSignalQuality(ctx, ta, *timeout)
	<-ctx.Done()
	log.Println("exiting...")
}

// pollSignalQuality polls the modem to read signal quality every minute.
//
// This is run in parallel to the event dispatch goroutines to
// demonstrate a command interleaved with unsolicited indications on the
// same MeTa.
func pollSignalQuality(ctx context.Context, ta *meta.MeTa, timeout time.Duration) {
	for {
		select {
		case <-time.After(time.Minute):
			tctx, tcancel := context.WithTimeout(ctx, timeout)
			i, err := ta.Chat(tctx, "+CSQ")
			tcancel()
			if err != nil {
				log.Println(err)
			} else {
				log.Printf("Signal quality: %v\n", i)
			}
		case <-ctx.Done():
			return
		}
	}
}

// smsSink prints every inline SMS as it arrives and fetches, prints, and
// erases any SMS the device only announced by store slot.
type smsSink struct {
	meta.NoopEventSink
	ta *meta.MeTa
}

func (s smsSink) OnSMS(msg tpdu.Message, msgType tpdu.Type) {
	if msgType != tpdu.TypeDeliver {
		return
	}
	log.Printf("%s: %s%s\n", msg.Originating.Number, msg.Text, concatTag(msg))
}

func (s smsSink) OnSMSIndication(storeName string, index int, msgType tpdu.Type) {
	// the fetch runs on its own goroutine so no AT command is issued
	// from within the dispatch callback.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		st, err := s.ta.GetSMSStore(ctx, storeName)
		if err != nil {
			log.Println(err)
			return
		}
		entry, err := st.Get(ctx, index)
		if err != nil {
			log.Println(err)
			return
		}
		if !entry.Empty {
			s.OnSMS(entry.Message, msgType)
		}
		if err := st.Erase(ctx, index); err != nil {
			log.Println(err)
		}
	}()
}

// concatTag reports a concatenated-short-message part's sequence, if the
// message carries one, for display alongside its text.
func concatTag(msg tpdu.Message) string {
	if len(msg.UDH) == 0 {
		return ""
	}
	elements, _, err := tpdu.DecodeUDH(msg.UDH)
	if err != nil {
		return ""
	}
	c, ok := tpdu.Concatenation(elements)
	if !ok {
		return ""
	}
	return fmt.Sprintf(" [part %d/%d ref %d]", c.Sequence, c.Total, c.Reference)
}
