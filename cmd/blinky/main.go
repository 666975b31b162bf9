// Command blinky is the hosted-port port of tn_stm32f0_example_basic.c:
// two threads toggling a simulated GPIO pin, one of them started by the
// other, plus a CyclicTimer driving a simulated heartbeat LED — exercising
// Thread.Activate, Thread.Sleep, and CyclicTimer.Start together on
// hostport instead of real GPIOC register writes.
package main

import (
	"fmt"
	"time"

	"github.com/tn-go/ukernel"
	"github.com/tn-go/ukernel/port/hostport"
)

const (
	priorityBlink  = 1
	priorityButton = 2
)

func main() {
	ukernel.SetStructuredLogger(ukernel.NewDefaultLogger(ukernel.LevelInfo))

	port := hostport.New()
	k, err := ukernel.NewKernel(port, ukernel.WithTickFrequency(1000))
	if err != nil {
		panic(err)
	}

	var pinBlink, pinButton bool
	doneBlink := false

	blinkThread, err := k.NewThread(priorityBlink, func(arg any) {
		doneBlink = false
		for !doneBlink {
			pinBlink = !pinBlink
			fmt.Printf("blink pin = %v\n", pinBlink)
			k.CurrentThread().Sleep(100)
		}
		pinBlink = false
	}, nil, ukernel.WithThreadName("blink"))
	if err != nil {
		panic(err)
	}

	_, err = k.NewThread(priorityButton, func(arg any) {
		for {
			pinButton = !pinButton
			fmt.Printf("button pin = %v\n", pinButton)
			if pinButton {
				doneBlink = true
			} else {
				_ = blinkThread.Activate()
			}
			k.CurrentThread().Sleep(2000)
		}
	}, nil, ukernel.WithThreadName("button"), ukernel.WithStartOnCreate(true))
	if err != nil {
		panic(err)
	}

	heartbeat, err := k.NewCyclicTimer(500, func() {
		fmt.Println("heartbeat")
	}, ukernel.WithCyclicTimerName("heartbeat"))
	if err != nil {
		panic(err)
	}
	if err := heartbeat.Start(); err != nil {
		panic(err)
	}

	ticker := hostport.NewTicker(k, time.Millisecond)
	ticker.Start()
	defer ticker.Stop()

	if err := k.Start(); err != nil {
		panic(err)
	}

	time.Sleep(5 * time.Second)
}
