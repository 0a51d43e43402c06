package commands

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func noop(context.Context, *Invocation) error { return nil }

func TestRegisterAndResolveAliases(t *testing.T) {
	b := NewBuilder()
	if err := b.Register(Descriptor{Name: "Clear", Aliases: []string{"purge", "DELETE"}, Handler: noop}, NamespacePrefix); err != nil {
		t.Fatalf("register: %v", err)
	}
	reg := b.Build()

	for _, token := range []string{"clear", "CLEAR", "purge", "delete"} {
		desc, ok := reg.Resolve(token, NamespacePrefix)
		if !ok || desc.Name != "clear" {
			t.Fatalf("expected %q to resolve to clear, got %+v", token, desc)
		}
	}
	if _, ok := reg.Resolve("cle", NamespacePrefix); ok {
		t.Fatalf("prefix matching must not resolve")
	}
	if _, ok := reg.Resolve("clear", NamespaceSlash); ok {
		t.Fatalf("namespaces must be independent")
	}
}

func TestRegisterDuplicateName(t *testing.T) {
	b := NewBuilder()
	_ = b.Register(Descriptor{Name: "ping", Handler: noop}, NamespacePrefix)
	err := b.Register(Descriptor{Name: "PING", Handler: noop}, NamespacePrefix)

	var dup *DuplicateCommandError
	if !errors.As(err, &dup) || !errors.Is(err, ErrDuplicateCommand) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if err := b.Register(Descriptor{Name: "ping", Handler: noop}, NamespaceSlash); err != nil {
		t.Fatalf("same name in other namespace should register: %v", err)
	}
}

func TestRegisterAliasConflictLeavesBuilderUnchanged(t *testing.T) {
	b := NewBuilder()
	_ = b.Register(Descriptor{Name: "ping", Aliases: []string{"latency"}, Handler: noop}, NamespacePrefix)

	err := b.Register(Descriptor{Name: "pong", Aliases: []string{"p", "latency"}, Handler: noop}, NamespacePrefix)
	var conflict *AliasConflictError
	if !errors.As(err, &conflict) || conflict.Existing != "ping" {
		t.Fatalf("expected alias conflict with ping, got %v", err)
	}

	reg := b.Build()
	if _, ok := reg.Resolve("pong", NamespacePrefix); ok {
		t.Fatalf("failed registration must not bind its name")
	}
	if _, ok := reg.Resolve("p", NamespacePrefix); ok {
		t.Fatalf("failed registration must not bind earlier aliases")
	}
	if len(reg.All(NamespacePrefix)) != 1 {
		t.Fatalf("expected one command")
	}
}

func TestRegisterRejectsMissingHandler(t *testing.T) {
	b := NewBuilder()
	if err := b.Register(Descriptor{Name: "ping"}, NamespacePrefix); !errors.Is(err, ErrInvalidCommand) {
		t.Fatalf("expected invalid descriptor error, got %v", err)
	}
}

func TestBuildIsIsolatedFromBuilder(t *testing.T) {
	b := NewBuilder()
	_ = b.Register(Descriptor{Name: "ping", Handler: noop}, NamespacePrefix)
	reg := b.Build()
	_ = b.Register(Descriptor{Name: "roll", Handler: noop}, NamespacePrefix)

	if _, ok := reg.Resolve("roll", NamespacePrefix); ok {
		t.Fatalf("registry must not see later registrations")
	}
}

func TestConcurrentResolve(t *testing.T) {
	b := NewBuilder()
	_ = b.Register(Descriptor{Name: "ping", Handler: noop}, NamespacePrefix)
	reg := b.Build()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := reg.Resolve("ping", NamespacePrefix); !ok {
				t.Errorf("resolve failed")
			}
		}()
	}
	wg.Wait()
}

func TestCooldownDefault(t *testing.T) {
	desc := Descriptor{Name: "ping"}
	if desc.Cooldown().Seconds() != DefaultCooldownSeconds {
		t.Fatalf("expected default cooldown, got %v", desc.Cooldown())
	}
	desc.CooldownSeconds = 10
	if desc.Cooldown().Seconds() != 10 {
		t.Fatalf("expected 10s cooldown, got %v", desc.Cooldown())
	}
}
