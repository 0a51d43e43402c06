package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

type Namespace string

const (
	NamespacePrefix Namespace = "prefix"
	NamespaceSlash  Namespace = "slash"
)

const DefaultCooldownSeconds = 3

var (
	ErrDuplicateCommand = errors.New("duplicate command")
	ErrAliasConflict    = errors.New("alias conflict")
	ErrInvalidCommand   = errors.New("invalid command descriptor")
)

type Handler func(ctx context.Context, inv *Invocation) error

// Descriptor is the static definition of one command. Permissions is a
// discordgo permission bitmask; zero means anyone may run it.
type Descriptor struct {
	Name            string
	Aliases         []string
	Description     string
	Usage           string
	Category        string
	Permissions     int64
	CooldownSeconds int
	Options         []*discordgo.ApplicationCommandOption
	Handler         Handler
}

func (d *Descriptor) Cooldown() time.Duration {
	seconds := d.CooldownSeconds
	if seconds <= 0 {
		seconds = DefaultCooldownSeconds
	}
	return time.Duration(seconds) * time.Second
}

// ApplicationCommand renders the descriptor for slash command registration.
func (d *Descriptor) ApplicationCommand() *discordgo.ApplicationCommand {
	cmd := &discordgo.ApplicationCommand{
		Name:        d.Name,
		Description: d.Description,
		Type:        discordgo.ChatApplicationCommand,
		Options:     d.Options,
	}
	if d.Permissions != 0 {
		perms := d.Permissions
		cmd.DefaultMemberPermissions = &perms
	}
	return cmd
}

type DuplicateCommandError struct {
	Namespace Namespace
	Name      string
}

func (e *DuplicateCommandError) Error() string {
	return fmt.Sprintf("%s command %q already registered", e.Namespace, e.Name)
}

func (e *DuplicateCommandError) Is(target error) bool { return target == ErrDuplicateCommand }

type AliasConflictError struct {
	Namespace Namespace
	Alias     string
	Command   string
	Existing  string
}

func (e *AliasConflictError) Error() string {
	return fmt.Sprintf("%s alias %q of %q collides with %q", e.Namespace, e.Alias, e.Command, e.Existing)
}

func (e *AliasConflictError) Is(target error) bool { return target == ErrAliasConflict }

// Builder collects descriptors at startup. It is not safe for concurrent use.
type Builder struct {
	names map[Namespace]map[string]*Descriptor
	order map[Namespace][]*Descriptor
}

func NewBuilder() *Builder {
	return &Builder{
		names: make(map[Namespace]map[string]*Descriptor),
		order: make(map[Namespace][]*Descriptor),
	}
}

// Register binds desc.Name and every alias in ns. On error the builder is left unchanged.
func (b *Builder) Register(desc Descriptor, ns Namespace) error {
	name := normalize(desc.Name)
	if name == "" || desc.Handler == nil {
		return fmt.Errorf("%w: %q needs a name and a handler", ErrInvalidCommand, desc.Name)
	}

	names := b.names[ns]
	if names == nil {
		names = make(map[string]*Descriptor)
	}
	if _, exists := names[name]; exists {
		return &DuplicateCommandError{Namespace: ns, Name: name}
	}

	aliases := make([]string, 0, len(desc.Aliases))
	pending := map[string]bool{name: true}
	for _, raw := range desc.Aliases {
		alias := normalize(raw)
		if alias == "" {
			continue
		}
		if existing, exists := names[alias]; exists {
			return &AliasConflictError{Namespace: ns, Alias: alias, Command: name, Existing: existing.Name}
		}
		if pending[alias] {
			return &AliasConflictError{Namespace: ns, Alias: alias, Command: name, Existing: name}
		}
		pending[alias] = true
		aliases = append(aliases, alias)
	}

	stored := desc
	stored.Name = name
	stored.Aliases = aliases
	names[name] = &stored
	for _, alias := range aliases {
		names[alias] = &stored
	}
	b.names[ns] = names
	b.order[ns] = append(b.order[ns], &stored)
	return nil
}

// Build freezes the collected descriptors into a Registry.
func (b *Builder) Build() *Registry {
	reg := &Registry{
		names: make(map[Namespace]map[string]*Descriptor, len(b.names)),
		order: make(map[Namespace][]*Descriptor, len(b.order)),
	}
	for ns, names := range b.names {
		copied := make(map[string]*Descriptor, len(names))
		for key, desc := range names {
			copied[key] = desc
		}
		reg.names[ns] = copied
	}
	for ns, list := range b.order {
		reg.order[ns] = append([]*Descriptor(nil), list...)
	}
	return reg
}

// Registry is read-only after Build and safe for concurrent lookups.
type Registry struct {
	names map[Namespace]map[string]*Descriptor
	order map[Namespace][]*Descriptor
}

func (r *Registry) Resolve(token string, ns Namespace) (*Descriptor, bool) {
	desc, ok := r.names[ns][normalize(token)]
	return desc, ok
}

// All returns the descriptors of ns in registration order, aliases collapsed.
func (r *Registry) All(ns Namespace) []*Descriptor {
	return append([]*Descriptor(nil), r.order[ns]...)
}

func (r *Registry) ApplicationCommands() []*discordgo.ApplicationCommand {
	list := r.order[NamespaceSlash]
	out := make([]*discordgo.ApplicationCommand, 0, len(list))
	for _, desc := range list {
		out = append(out, desc.ApplicationCommand())
	}
	return out
}

func normalize(token string) string {
	return strings.ToLower(strings.TrimSpace(token))
}
