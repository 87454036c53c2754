package main

import (
	"flag"
	"os"
	"runtime"

	"github.com/gekko3d/volumetrics"
	"github.com/gekko3d/volumetrics/fogrt/rt/app"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "Scene YAML (cameras, lights, volumes, probes)")
	debug := flag.Bool("debug", false, "Enable debug logging and periodic fog stats")
	width := flag.Int("width", 1280, "Window width")
	height := flag.Int("height", 720, "Window height")
	flag.Parse()

	log := volumetrics.NewDefaultLogger("[fogrt] ", *debug)

	scene := &volumetrics.Config{}
	if *configPath != "" {
		cfg, err := volumetrics.LoadConfig(*configPath)
		if err != nil {
			log.Errorf("%v", err)
			os.Exit(1)
		}
		scene = cfg
	}

	if err := glfw.Init(); err != nil {
		panic(err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(*width, *height, "Volumetric Fog", nil, nil)
	if err != nil {
		panic(err)
	}
	defer window.Destroy()

	application := app.NewApp(window, scene, log)
	application.DebugMode = *debug
	if err := application.Init(); err != nil {
		panic(err)
	}
	defer application.Release()

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		application.Resize(width, height)
	})

	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		if application.MouseCaptured {
			application.Look(xpos-application.MouseX, ypos-application.MouseY)
		}
		application.MouseX = xpos
		application.MouseY = ypos
	})

	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button == glfw.MouseButtonLeft && action == glfw.Press && !application.MouseCaptured {
			application.HandleClick(application.MouseX, application.MouseY)
		}
	})

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyTab && action == glfw.Press {
			application.MouseCaptured = !application.MouseCaptured
			if application.MouseCaptured {
				w.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
			} else {
				w.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
			}
		}
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
		// Rebake everything that follows lightmap bakes.
		if key == glfw.KeyB && action == glfw.Press {
			if err := application.Feature.OnLightmapBakeCompleted(); err != nil {
				log.Errorf("rebake: %v", err)
			}
		}
	})

	for !window.ShouldClose() {
		glfw.PollEvents()
		application.Update()
		application.Render()
	}
}
