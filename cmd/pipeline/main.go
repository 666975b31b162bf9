// Command pipeline is a producer/consumer example exercising Mutex,
// DataQueue, MsgQueue and EventGroup together on hostport: a shared-counter
// mutex, a bounded pointer queue between two producers and a consumer, an
// urgent/priority message channel for out-of-band control messages, and an
// event group a supervisor thread waits on for "all producers done".
//
// Its thread/priority layout is loaded from a small YAML config file,
// giving gopkg.in/yaml.v3 — already an indirect dependency via testify —
// a direct, concrete consumer, the same way the kernel's functional-options
// construction surface can be driven from any external configuration
// format.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tn-go/ukernel"
	"github.com/tn-go/ukernel/port/hostport"
)

// Config is the pipeline's thread/priority/queue layout, normally loaded
// from a YAML file passed as the program's first argument.
type Config struct {
	ProducerAPriority int `yaml:"producer_a_priority"`
	ProducerBPriority int `yaml:"producer_b_priority"`
	ConsumerPriority  int `yaml:"consumer_priority"`
	SupervisorPriority int `yaml:"supervisor_priority"`
	QueueCapacity     int `yaml:"queue_capacity"`
	ItemsPerProducer  int `yaml:"items_per_producer"`
}

func defaultConfig() Config {
	return Config{
		ProducerAPriority:  3,
		ProducerBPriority:  3,
		ConsumerPriority:   2,
		SupervisorPriority: 1,
		QueueCapacity:      8,
		ItemsPerProducer:   20,
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

const eventProducerADone uint32 = 1 << 0
const eventProducerBDone uint32 = 1 << 1
const eventsAllProducersDone = eventProducerADone | eventProducerBDone

type controlMsg struct {
	from string
	text string
}

func main() {
	var cfgPath string
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		panic(err)
	}

	ukernel.SetStructuredLogger(ukernel.NewDefaultLogger(ukernel.LevelInfo))

	port := hostport.New()
	k, err := ukernel.NewKernel(port, ukernel.WithTickFrequency(1000))
	if err != nil {
		panic(err)
	}

	items, err := ukernel.NewDataQueue[int](k, cfg.QueueCapacity, ukernel.WithDataQueueName("items"))
	if err != nil {
		panic(err)
	}
	control, err := ukernel.NewMsgQueue[controlMsg](k, 4, ukernel.WithMsgQueueName("control"))
	if err != nil {
		panic(err)
	}
	events, err := k.NewEventGroup(0, ukernel.WithEventName("producers-done"))
	if err != nil {
		panic(err)
	}
	totalMu, err := k.NewMutex(ukernel.WithMutexName("total"))
	if err != nil {
		panic(err)
	}

	total := 0

	producer := func(name string, doneBit uint32, base int) func(arg any) {
		return func(arg any) {
			for i := 0; i < cfg.ItemsPerProducer; i++ {
				if status := items.Send(base+i, ukernel.Forever); status != ukernel.StatusOK {
					_ = control.Send(controlMsg{from: name, text: fmt.Sprintf("send failed: %s", status)}, ukernel.Forever)
					return
				}
				k.CurrentThread().Sleep(5)
			}
			_ = control.SendUrgent(controlMsg{from: name, text: "done"}, ukernel.Forever)
			_ = events.Set(doneBit)
		}
	}

	_, err = k.NewThread(cfg.ProducerAPriority, producer("producer-a", eventProducerADone, 0), nil,
		ukernel.WithThreadName("producer-a"), ukernel.WithStartOnCreate(true))
	if err != nil {
		panic(err)
	}
	_, err = k.NewThread(cfg.ProducerBPriority, producer("producer-b", eventProducerBDone, 1000), nil,
		ukernel.WithThreadName("producer-b"), ukernel.WithStartOnCreate(true))
	if err != nil {
		panic(err)
	}

	_, err = k.NewThread(cfg.ConsumerPriority, func(arg any) {
		for {
			value, status := items.Receive(200)
			if status == ukernel.StatusTimeout {
				continue
			}
			if status != ukernel.StatusOK {
				return
			}
			if status := totalMu.Lock(ukernel.Forever); status == ukernel.StatusOK {
				total += value
				_ = totalMu.Unlock()
			}
		}
	}, nil, ukernel.WithThreadName("consumer"), ukernel.WithStartOnCreate(true))
	if err != nil {
		panic(err)
	}

	_, err = k.NewThread(cfg.SupervisorPriority, func(arg any) {
		for {
			msg, status := control.Receive(ukernel.Polling)
			if status == ukernel.StatusOK {
				fmt.Printf("control: %s: %s\n", msg.from, msg.text)
			}
			if _, status := events.Wait(eventsAllProducersDone, ukernel.EventWaitAll, ukernel.Polling); status == ukernel.StatusOK {
				fmt.Printf("all producers done, total=%d\n", total)
				return
			}
			k.CurrentThread().Sleep(10)
		}
	}, nil, ukernel.WithThreadName("supervisor"), ukernel.WithStartOnCreate(true))
	if err != nil {
		panic(err)
	}

	ticker := hostport.NewTicker(k, time.Millisecond)
	ticker.Start()
	defer ticker.Stop()

	if err := k.Start(); err != nil {
		panic(err)
	}

	time.Sleep(3 * time.Second)
}
