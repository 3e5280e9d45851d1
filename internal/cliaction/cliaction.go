package cliaction

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"syscall"

	"github.com/MIC-DKFZ/AVID-sub001/internal/action"
	"github.com/MIC-DKFZ/AVID-sub001/internal/artefact"
	"github.com/MIC-DKFZ/AVID-sub001/internal/session"
)

// Config describes one CLI-wrapped tool action.
type Config struct {
	// ActionID is the tool key resolved by the executable locator.
	// Required.
	ActionID string

	// Tag is the action tag; outputs carry it as their producer tag.
	// Defaults to ActionID.
	Tag string

	// Inputs maps CLI argument keys to artifact lists. Keys not listed in
	// Positions are emitted as flags.
	Inputs map[string][]*artefact.Artifact

	// ReferenceSlot names the input slot providing the reference artifact
	// for output derivation. Empty means the first non-nil input in slot
	// name order.
	ReferenceSlot string

	// OutputExtension is the file extension of the indicated output.
	OutputExtension string

	// OutputFormat optionally overrides the format inherited from the
	// reference input.
	OutputFormat artefact.Format

	// OutputFlags holds one flag per indicated output, in order. An empty
	// entry makes that output positional.
	OutputFlags []string

	// ExtraArgs are additional CLI arguments. A nil value emits a bare
	// switch.
	ExtraArgs map[string]*string

	// Positions lists argument keys that must appear positionally, before
	// any flag-based argument, in the given order.
	Positions []string

	// IllegalArgs rejects configuration mistakes: keys a tool owns itself
	// and callers must not supply.
	IllegalArgs []string

	// ExecutableConfig is an explicit executable path consulted by the
	// locator after the session override and before the tools config.
	ExecutableConfig string

	// Indicate overrides the default single-output indication.
	Indicate func(a *action.Single) ([]*artefact.Artifact, error)

	// Collector optionally post-processes outputs, e.g. timestep fan-in.
	Collector action.Collector

	// AdditionalProps, InheritUserProps and AlwaysDo forward to the single
	// action.
	AdditionalProps  map[string]string
	InheritUserProps bool
	AlwaysDo         bool
}

// New validates the configuration and builds a single action wrapping the
// tool. Illegal arguments and unknown positional keys abort here, before
// any fan-out or execution.
func New(sess *session.Session, cfg Config) (*action.Single, error) {
	if cfg.ActionID == "" {
		return nil, fmt.Errorf("cliaction: empty action id")
	}
	if cfg.Tag == "" {
		cfg.Tag = cfg.ActionID
	}
	for _, illegal := range cfg.IllegalArgs {
		if _, ok := cfg.Inputs[illegal]; ok {
			return nil, fmt.Errorf("cliaction %s: illegal input argument %q", cfg.Tag, illegal)
		}
		if _, ok := cfg.ExtraArgs[illegal]; ok {
			return nil, fmt.Errorf("cliaction %s: illegal extra argument %q", cfg.Tag, illegal)
		}
	}
	for _, pos := range cfg.Positions {
		_, inInputs := cfg.Inputs[pos]
		_, inExtra := cfg.ExtraArgs[pos]
		if !inInputs && !inExtra {
			return nil, fmt.Errorf("cliaction %s: positional key %q matches no argument", cfg.Tag, pos)
		}
	}
	if cfg.ReferenceSlot != "" {
		if _, ok := cfg.Inputs[cfg.ReferenceSlot]; !ok {
			return nil, fmt.Errorf("cliaction %s: reference slot %q matches no input", cfg.Tag, cfg.ReferenceSlot)
		}
	}

	gen := &generator{cfg: cfg, connector: platformConnector()}
	return action.NewSingle(sess, action.SingleConfig{
		Tag:              cfg.Tag,
		Inputs:           cfg.Inputs,
		AdditionalProps:  cfg.AdditionalProps,
		InheritUserProps: cfg.InheritUserProps,
		AlwaysDo:         cfg.AlwaysDo,
		Generator:        gen,
		Collector:        cfg.Collector,
	})
}

// generator implements the indicate and generate phases for CLI tools.
type generator struct {
	cfg       Config
	connector connector
}

// Indicate derives one output artifact from the reference input unless the
// configuration overrides indication.
func (g *generator) Indicate(a *action.Single) ([]*artefact.Artifact, error) {
	if g.cfg.Indicate != nil {
		return g.cfg.Indicate(a)
	}
	ref := g.reference(a)
	overrides := map[string]string{}
	if g.cfg.OutputFormat != "" {
		overrides[artefact.KeyFormat] = string(g.cfg.OutputFormat)
	}
	out, err := a.GenerateArtifact(ref, overrides, g.cfg.OutputExtension)
	if err != nil {
		return nil, err
	}
	return []*artefact.Artifact{out}, nil
}

func (g *generator) reference(a *action.Single) *artefact.Artifact {
	if g.cfg.ReferenceSlot != "" {
		for _, in := range a.Inputs(g.cfg.ReferenceSlot) {
			if in != nil {
				return in
			}
		}
	}
	return a.Reference()
}

// Generate resolves the executable, assembles the command line, emits the
// launch script with its log siblings, waits for the script to settle and
// runs the tool. A non-zero exit code is logged but does not fail the
// action by itself; output validation decides.
func (g *generator) Generate(ctx context.Context, a *action.Single, outputs []*artefact.Artifact) error {
	if len(outputs) == 0 {
		return fmt.Errorf("cliaction %s: no indicated outputs", a.Tag())
	}

	st := a.Session().Settings()
	exe, err := st.ExecutableURL(g.cfg.ActionID, g.cfg.ExecutableConfig)
	if err != nil {
		return err
	}

	command := Assemble(exe, g.cfg.Inputs, g.cfg.ExtraArgs, g.cfg.Positions, outputs, g.cfg.OutputFlags)

	for _, out := range outputs {
		if err := session.EnsureDir(out.URL); err != nil {
			return fmt.Errorf("cliaction %s: create output dir: %w", a.Tag(), err)
		}
	}

	scriptPath := g.connector.ScriptPath(outputs[0].URL)
	if err := g.connector.WriteScript(scriptPath, command); err != nil {
		return err
	}

	if err := settle(scriptPath, st.SubprocessPause, st.GuardAttempts()); err != nil {
		// Launch anyway; the settle guard only probes for residual locks.
		log.Printf("cliaction %s: %v", a.Tag(), err)
	}

	return g.launch(ctx, a, scriptPath)
}

// launch runs the script with stdout and stderr captured into the log
// siblings, killing the whole process group on context cancellation.
func (g *generator) launch(ctx context.Context, a *action.Single, scriptPath string) error {
	stdout, err := os.Create(scriptPath + ".log")
	if err != nil {
		return fmt.Errorf("cliaction %s: open stdout log: %w", a.Tag(), err)
	}
	defer stdout.Close()
	stderr, err := os.Create(scriptPath + ".error.log")
	if err != nil {
		return fmt.Errorf("cliaction %s: open stderr log: %w", a.Tag(), err)
	}
	defer stderr.Close()

	cmd := g.connector.Command(ctx, scriptPath)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("cliaction %s: start %s: %w", a.Tag(), scriptPath, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		if cmd.Process != nil {
			syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		<-done
		return fmt.Errorf("cliaction %s: cancelled: %w", a.Tag(), ctx.Err())
	case err = <-done:
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			log.Printf("cliaction %s: tool exited with code %d, validating outputs", a.Tag(), exitErr.ExitCode())
			return nil
		}
		return fmt.Errorf("cliaction %s: run %s: %w", a.Tag(), scriptPath, err)
	}
	return nil
}
