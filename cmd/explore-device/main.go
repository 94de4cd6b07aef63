// ABOUTME: Diagnostic app that inventories connected actuator devices
// ABOUTME: Connects, lists capabilities, and runs a short intensity ramp
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/muchfun/muchfun-go/internal/device"
)

var (
	serverAddr = flag.String("server", "localhost:12345", "Control server address")
	name       = flag.String("name", "explore-device", "Client name")
	scanWait   = flag.Duration("scan-wait", 5*time.Second, "How long to wait for device scanning")
	ramp       = flag.Bool("ramp", false, "Run a short intensity ramp on the active device")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ltime | log.Lmicroseconds)

	fmt.Println("=== Device Explorer ===")
	fmt.Printf("Connecting to %s as '%s'...\n", *serverAddr, *name)

	client := device.NewClient(device.Config{
		ServerAddr: *serverAddr,
		ClientName: *name,
	}, func(status string) {
		log.Printf("%s", status)
	})

	if err := client.Connect(); err != nil {
		log.Fatalf("Connection failed: %v", err)
	}
	defer client.Close()

	fmt.Printf("Connected. Waiting %s for device scan...\n", *scanWait)
	time.Sleep(*scanWait)

	devices := client.Devices()
	if len(devices) == 0 {
		fmt.Println("No devices found.")
		return
	}

	for _, d := range devices {
		fmt.Printf("\nDevice %d: %s\n", d.DeviceIndex, d.DeviceName)
		printFeatures("ScalarCmd", d.DeviceMessages.ScalarCmd)
		printFeatures("LinearCmd", d.DeviceMessages.LinearCmd)
		printFeatures("RotateCmd", d.DeviceMessages.RotateCmd)
	}

	if !*ramp {
		return
	}

	fmt.Println("\nRunning intensity ramp 0% -> 50% -> 0%...")
	levels := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.3, 0.1, 0}
	for _, level := range levels {
		if err := client.Command(level); err != nil {
			log.Fatalf("Command failed: %v", err)
		}
		fmt.Printf("  intensity %.0f%%\n", level*100)
		time.Sleep(500 * time.Millisecond)
	}

	if err := client.Stop(); err != nil {
		log.Printf("Stop failed: %v", err)
	}
	fmt.Println("Ramp complete.")
}

// printFeatures lists one command family's features.
func printFeatures(family string, features []device.ScalarFeature) {
	if len(features) == 0 {
		return
	}
	fmt.Printf("  %s:\n", family)
	for i, f := range features {
		desc := f.FeatureDescriptor
		if desc == "" {
			desc = f.ActuatorType
		}
		fmt.Printf("    [%d] %s (%d steps)\n", i, desc, f.StepCount)
	}
}
