// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GameDock Contributors

//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/gamedock/gamedock/internal/bridge"
	"github.com/gamedock/gamedock/internal/host"
	"github.com/gamedock/gamedock/internal/module"
	"github.com/gamedock/gamedock/internal/module/luahost"
	"github.com/gamedock/gamedock/pkg/modsdk"
)

const counterScript = `
count = 0

function handle_message(msg)
  local fn = msg["function"]
  if fn == "start" or fn == "init" then
    count = 0
    return { ["function"] = "ready" }
  end
  if fn == "bump" then
    count = count + 1
    return { ["function"] = "count", value = count }
  end
  if fn == "quit" then
    return { ["function"] = "end", value = count }
  end
  return nil
end
`

func writeLuaModule(root, name, script string) {
	dir := filepath.Join(root, name)
	Expect(os.MkdirAll(dir, 0o750)).To(Succeed())
	manifest := "name: " + name + "\nversion: 1.0.0\ntype: lua\nlua-module:\n  entry: main.lua\n"
	Expect(os.WriteFile(filepath.Join(dir, "module.yaml"), []byte(manifest), 0o600)).To(Succeed())
	Expect(os.WriteFile(filepath.Join(dir, "main.lua"), []byte(script), 0o600)).To(Succeed())
}

var _ = Describe("Load pass", func() {
	var (
		ctx      context.Context
		root     string
		loader   *module.Loader
		registry *module.Registry
	)

	BeforeEach(func() {
		ctx = context.Background()
		root = GinkgoT().TempDir()

		scanner, err := module.NewScanner(root)
		Expect(err).NotTo(HaveOccurred())
		registry = module.NewRegistry()
		loader = module.NewLoader(scanner, module.NewBuilder(), registry,
			module.WithHost(module.TypeLua, luahost.NewHost()))
	})

	AfterEach(func() {
		Expect(loader.Close(ctx)).To(Succeed())
	})

	It("loads every valid module into the registry", func() {
		writeLuaModule(root, "alpha", counterScript)
		writeLuaModule(root, "beta", counterScript)

		result, err := loader.LoadAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.LoadedNames()).To(Equal([]string{"alpha", "beta"}))
		Expect(result.Failures).To(BeEmpty())
		Expect(registry.Names()).To(Equal([]string{"alpha", "beta"}))
	})

	It("records a failure without aborting the pass", func() {
		writeLuaModule(root, "alpha", counterScript)
		writeLuaModule(root, "broken", "function handle_message(")
		writeLuaModule(root, "gamma", counterScript)

		result, err := loader.LoadAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.LoadedNames()).To(Equal([]string{"alpha", "gamma"}))

		reason, ok := result.FailureFor("broken")
		Expect(ok).To(BeTrue())
		Expect(reason).NotTo(BeEmpty())
	})

	It("replaces the registry wholesale on refresh", func() {
		writeLuaModule(root, "alpha", counterScript)
		_, err := loader.LoadAll(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(os.RemoveAll(filepath.Join(root, "alpha"))).To(Succeed())
		writeLuaModule(root, "beta", counterScript)

		result, err := loader.LoadAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.LoadedNames()).To(Equal([]string{"beta"}))
		Expect(registry.Names()).To(Equal([]string{"beta"}))
	})
})

var _ = Describe("Play session", func() {
	It("drives a module from start to end over the bridge", func() {
		ctx := context.Background()
		root := GinkgoT().TempDir()

		dir := filepath.Join(root, "counter")
		Expect(os.MkdirAll(dir, 0o750)).To(Succeed())
		manifest := `name: counter
version: 1.0.0
type: lua
events: [start, init, bump, quit]
lua-module:
  entry: main.lua
`
		Expect(os.WriteFile(filepath.Join(dir, "module.yaml"), []byte(manifest), 0o600)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "main.lua"), []byte(counterScript), 0o600)).To(Succeed())

		scanner, err := module.NewScanner(root)
		Expect(err).NotTo(HaveOccurred())
		registry := module.NewRegistry()
		loader := module.NewLoader(scanner, module.NewBuilder(), registry,
			module.WithHost(module.TypeLua, luahost.NewHost()))
		defer func() {
			Expect(loader.Close(ctx)).To(Succeed())
		}()

		result, err := loader.LoadAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Loaded).To(HaveLen(1))
		entry := result.Loaded[0]

		mod, ok := registry.Get("counter")
		Expect(ok).To(BeTrue())

		b := bridge.New()
		returned := make(chan struct{})
		b.SetReturnCallback(func() { close(returned) })

		session := host.NewSession("counter", mod, b, host.WithEvents(entry.Manifest.Events))
		surface, err := session.Start(ctx, modsdk.NewMessage(modsdk.FunctionStart))
		Expect(err).NotTo(HaveOccurred())
		Expect(surface.Kind).To(Equal(modsdk.SurfaceTerminal))

		var counts []int
		b.Subscribe(func(msg modsdk.Message) {
			if msg.Function() == "count" {
				if v, ok := msg["value"].(int); ok {
					counts = append(counts, v)
				}
			}
		})

		b.Publish(modsdk.NewMessage("bump"))
		b.Publish(modsdk.NewMessage("bump"))
		b.Publish(modsdk.NewMessage("quit"))

		Eventually(returned).Should(BeClosed())
		Eventually(session.Done()).Should(BeClosed())
		Expect(counts).To(Equal([]int{1, 2}))
	})
})
