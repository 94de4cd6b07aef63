// ABOUTME: Entry point for the MuchFun actuator controller
// ABOUTME: Parses CLI flags and wires the bridge, engine, and device client
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muchfun/muchfun-go/internal/bridge"
	"github.com/muchfun/muchfun-go/internal/capture"
	"github.com/muchfun/muchfun-go/internal/device"
	"github.com/muchfun/muchfun-go/internal/discovery"
	"github.com/muchfun/muchfun-go/internal/dispatch"
	"github.com/muchfun/muchfun-go/internal/engine"
	"github.com/muchfun/muchfun-go/internal/ui"
	"github.com/muchfun/muchfun-go/internal/version"
)

var (
	serverAddr = flag.String("server", "localhost:12345", "Control server address (host:port)")
	discover   = flag.Bool("discover", false, "Find the control server via mDNS instead of -server")
	name       = flag.String("name", "", "Client name (default: hostname-muchfun)")
	logFile    = flag.String("log-file", "muchfun.log", "Log file path")
	noTUI      = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	testTone   = flag.Bool("test-tone", false, "Use a synthetic tone instead of the microphone")
)

func main() {
	flag.Parse()

	useTUI := !*noTUI

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		// Streaming logs mode: log to both stdout and file
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	// Determine client name
	clientName := *name
	if clientName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		clientName = fmt.Sprintf("%s-muchfun", hostname)
	}

	log.Printf("Starting %s %s as %s", version.Product, version.Version, clientName)

	// Cross-thread state bridge, seeded with defaults
	br := bridge.New(64)
	br.Store(bridge.DefaultParams())

	// TUI setup
	var tuiProg *tea.Program
	var ctrl *ui.Control

	if useTUI {
		ctrl = ui.NewControl()
		tuiProg, err = ui.Run(br, ctrl)
		if err != nil {
			log.Fatalf("Failed to start TUI: %v", err)
		}
		go func() {
			if _, err := tuiProg.Run(); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
	}

	onStatus := func(status string) {
		log.Printf("Status: %s", status)
		br.Publish(bridge.Update{Status: status})
	}

	// Resolve the server address, via mDNS if requested
	address := *serverAddr
	if *discover {
		log.Printf("Browsing for control server via mDNS...")
		disc := discovery.NewManager()
		disc.Browse()

		select {
		case server := <-disc.Servers():
			address = fmt.Sprintf("%s:%d", server.Host, server.Port)
			log.Printf("Discovered server %s at %s", server.Name, address)
		case <-time.After(10 * time.Second):
			log.Fatalf("No control server found after 10 seconds")
		}
		disc.Stop()
	}

	// Device client and rate-limited dispatcher
	client := device.NewClient(device.Config{
		ServerAddr: address,
		ClientName: clientName,
	}, onStatus)

	if err := client.Connect(); err != nil {
		log.Fatalf("Connection failed: %v", err)
	}
	log.Printf("Connected to control server: %s", address)

	dispatcher := dispatch.New(client, dispatch.DefaultInterval, onStatus)

	// Audio source: real microphone unless a test tone was requested
	openSource := func() (capture.Source, error) {
		if *testTone {
			return capture.NewToneSource(440), nil
		}
		return capture.OpenMicrophone(capture.DefaultSampleRate, capture.DefaultFrameSize)
	}

	eng := engine.New(engine.Config{
		Bridge:     br,
		Dispatcher: dispatcher,
		OpenSource: openSource,
		HasDevice:  client.HasDevice,
	})
	eng.Start()

	// Pump producer updates into the TUI
	if tuiProg != nil {
		go updatePump(br, client, address, tuiProg)
		go handleEmergencyStop(eng, ctrl)
	}

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if ctrl != nil {
		select {
		case <-ctrl.Quit:
			log.Printf("Received quit signal from TUI")
		case <-sigChan:
			log.Printf("Shutdown signal received")
			tuiProg.Quit()
		}
	} else {
		<-sigChan
		log.Printf("Shutdown signal received")
	}

	// Stop producers first so nothing re-drives the actuator, then make
	// sure the device ends at zero before disconnecting.
	eng.Stop()
	if err := dispatcher.EmergencyStop(); err != nil {
		log.Printf("Error stopping device: %v", err)
	}
	dispatcher.Close()
	client.Close()

	log.Printf("Controller stopped")
}

// updatePump drains bridge updates into the TUI and refreshes the
// connection line once a second.
func updatePump(br *bridge.Bridge, client *device.Client, address string, prog *tea.Program) {
	connTicker := time.NewTicker(time.Second)
	defer connTicker.Stop()

	for {
		select {
		case u, ok := <-br.Updates():
			if !ok {
				return
			}
			prog.Send(ui.UpdateMsg(u))
		case <-connTicker.C:
			prog.Send(ui.ConnectionMsg{
				Connected: client.IsConnected(),
				Server:    address,
			})
		}
	}
}

// handleEmergencyStop relays the TUI's stop signal to the engine.
func handleEmergencyStop(eng *engine.Engine, ctrl *ui.Control) {
	for range ctrl.EmergencyStop {
		log.Printf("Emergency stop requested")
		eng.EmergencyStop()
	}
}
