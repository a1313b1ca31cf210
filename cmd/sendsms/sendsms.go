// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// sendsms sends an SMS PDU using the terminal adapter driver.
//
// This provides an example of using MeTa.SendSMS, as well as a test that
// the driver works with the modem.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"time"

	"github.com/go-gsm/gsmta/meta"
	"github.com/go-gsm/gsmta/serial"
	"github.com/go-gsm/gsmta/tpdu"
	"github.com/go-gsm/gsmta/trace"
)

func main() {
	dev := flag.String("d", "/dev/ttyUSB0", "path to modem device")
	baud := flag.Int("b", 115200, "baud rate")
	num := flag.String("n", "+12345", "number to send to, in international format")
	msg := flag.String("m", "Zoot Zoot", "the message to send")
	timeout := flag.Duration("t", 5000*time.Millisecond, "command timeout period")
	verbose := flag.Bool("v", false, "log modem interactions")
	hex := flag.Bool("x", false, "hex dump modem responses")
	flag.Parse()

	m, err := serial.New(*dev, *baud)
	if err != nil {
		log.Fatal(err)
	}
	var mio io.ReadWriter = m
	if *hex {
		mio = trace.New(m, log.New(os.Stdout, "", log.LstdFlags), trace.ReadFormat("r: % X"))
	} else if *verbose {
		mio = trace.New(m, log.New(os.Stdout, "", log.LstdFlags))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ta, err := meta.Open(ctx, mio, meta.Config{})
	if err != nil {
		log.Fatal(err)
	}

	submit := tpdu.Message{
		Type:        tpdu.TypeSubmit,
		Destination: tpdu.NewAddress(*num),
		DCS:         tpdu.NewDCS(tpdu.AlphabetGSM7),
		Text:        *msg,
	}
	mr, ack, err := ta.SendSMS(ctx, submit)
	// !!! check CPIN?? on failure to determine root cause??  If ERROR 302
	log.Printf("mr=%v ack=%v err=%v\n", mr, ack, err)
}
