package hooks

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/tuxx/shroudlock/internal/logger"
)

// Commands runs user shell commands before locking and after unlocking
type Commands struct {
	Base
	Pre  string
	Post string

	run func(string) error
}

// NewCommands creates a command hook; empty commands are skipped
func NewCommands(pre, post string) *Commands {
	return &Commands{Pre: pre, Post: post, run: runShellCommand}
}

// BeforeLock runs the pre-lock command
func (c *Commands) BeforeLock() {
	if c.Pre == "" {
		return
	}
	logger.Debug("Running pre-lock command: %s", c.Pre)
	if err := c.run(c.Pre); err != nil {
		logger.Error("Pre-lock command failed: %v", err)
	}
}

// Unlocked runs the post-lock command
func (c *Commands) Unlocked() {
	if c.Post == "" {
		return
	}
	logger.Debug("Running post-lock command: %s", c.Post)
	if err := c.run(c.Post); err != nil {
		logger.Error("Post-lock command failed: %v", err)
	}
}

// runShellCommand executes a shell command string
func runShellCommand(cmd string) error {
	out, err := exec.Command("sh", "-c", strings.TrimSpace(cmd)).CombinedOutput()
	if err != nil {
		return fmt.Errorf("command failed: %w - %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
