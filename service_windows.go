//go:build windows

// Package main provides Windows service support for the caricature studio.
//
// service_windows.go implements the Windows Service interface using
// github.com/kardianos/service so the studio can run in the background with
// proper Start/Stop handling.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/kardianos/service"

	"caricature_studio/core"
)

// serviceStopTimeout is how long Stop waits for the studio to drain.
const serviceStopTimeout = 90 * time.Second

// Program implements service.Interface around run.
type Program struct {
	stop chan struct{}
	exit chan int
}

// Start is called when the service is started. run blocks, so it gets its
// own goroutine.
func (p *Program) Start(s service.Service) error {
	p.stop = make(chan struct{})
	p.exit = make(chan int, 1)

	go func() {
		p.exit <- run(p.stop)
	}()
	return nil
}

// Stop asks run to shut down and waits for it.
func (p *Program) Stop(s service.Service) error {
	close(p.stop)

	select {
	case code := <-p.exit:
		if code != core.ExitCodeSuccess {
			return fmt.Errorf("studio exited with %s (%d)", core.ExitCodeName(code), code)
		}
		return nil
	case <-time.After(serviceStopTimeout):
		return fmt.Errorf("timeout waiting for service to stop")
	}
}

// ServiceConfig returns the service configuration for Windows.
func ServiceConfig() *service.Config {
	return &service.Config{
		Name:        "CaricatureStudio",
		DisplayName: "Caricature Studio",
		Description: "Turns selfies into graduation caricatures with Gemini and OpenAI image models",
		Option: service.KeyValue{
			"StartType": "automatic",
		},
	}
}

func newService() (service.Service, error) {
	s, err := service.New(&Program{}, ServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return s, nil
}

// RunAsService runs the studio under the service control manager.
// Returns false when running interactively.
func RunAsService() (bool, error) {
	if service.Interactive() {
		return false, nil
	}

	s, err := newService()
	if err != nil {
		return false, err
	}
	if err := s.Run(); err != nil {
		return true, fmt.Errorf("service run failed: %w", err)
	}
	return true, nil
}

// serviceAction runs one control action and prints its outcome.
func serviceAction(name string, action func(service.Service) error) error {
	s, err := newService()
	if err != nil {
		return err
	}
	if err := action(s); err != nil {
		return fmt.Errorf("failed to %s service: %w", name, err)
	}
	fmt.Printf("Service %s: done\n", name)
	return nil
}

// ServiceStatus returns the current status of the Windows service.
func ServiceStatus() (service.Status, error) {
	s, err := newService()
	if err != nil {
		return service.StatusUnknown, err
	}
	status, err := s.Status()
	if err != nil {
		return service.StatusUnknown, fmt.Errorf("failed to get service status: %w", err)
	}
	return status, nil
}

// PrintServiceUsage prints the help/usage information for service commands.
func PrintServiceUsage() {
	fmt.Println("Caricature Studio Service Management")
	fmt.Println()
	fmt.Println("Usage: caricature-studio.exe <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  install    Install the studio as a Windows service")
	fmt.Println("  uninstall  Remove the Windows service (alias: remove)")
	fmt.Println("  start      Start the Windows service")
	fmt.Println("  stop       Stop the Windows service")
	fmt.Println("  restart    Restart the Windows service (stop then start)")
	fmt.Println("  status     Show the current service status")
	fmt.Println("  help       Show this help message")
	fmt.Println()
	fmt.Println("Run without arguments to start the studio in the foreground.")
}

// HandleServiceCommand handles service-related command-line arguments.
// Returns true if a service command was handled, false otherwise.
func HandleServiceCommand(args []string) bool {
	if len(args) < 2 {
		return false
	}

	var err error
	switch args[1] {
	case "install":
		err = serviceAction("install", service.Service.Install)
	case "uninstall", "remove":
		err = serviceAction("uninstall", service.Service.Uninstall)
	case "start":
		err = serviceAction("start", service.Service.Start)
	case "stop":
		err = serviceAction("stop", service.Service.Stop)
	case "restart":
		err = serviceAction("restart", service.Service.Restart)
	case "status":
		status, statusErr := ServiceStatus()
		if statusErr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", statusErr)
			os.Exit(core.ExitCodeError)
		}
		switch status {
		case service.StatusRunning:
			fmt.Println("Service is running")
		case service.StatusStopped:
			fmt.Println("Service is stopped")
		default:
			fmt.Println("Service status unknown")
		}
		return true
	case "help", "-h", "--help", "-help":
		PrintServiceUsage()
		return true
	default:
		return false
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(core.ExitCodeError)
	}
	return true
}
