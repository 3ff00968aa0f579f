package main

import (
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// dummyTarget is a local HTTP server the demo workers hammer when no real
// target URL is given. /ok always succeeds, /slow succeeds after a random
// delay, /flaky fails about one request in five.
type dummyTarget struct {
	listener net.Listener
	server   *http.Server
}

func newDummyTarget() (*dummyTarget, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	payload := strings.Repeat("x", 150)

	router.GET("/ok", func(c *gin.Context) {
		c.String(http.StatusOK, payload)
	})
	router.GET("/slow", func(c *gin.Context) {
		time.Sleep(time.Duration(20+rand.Intn(60)) * time.Millisecond)
		c.String(http.StatusOK, payload)
	})
	router.GET("/flaky", func(c *gin.Context) {
		if rand.Intn(5) == 0 {
			c.String(http.StatusInternalServerError, "flaky endpoint failed")
			return
		}
		c.String(http.StatusOK, payload)
	})

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen for dummy target: %w", err)
	}

	server := &http.Server{Handler: router}
	go func() {
		_ = server.Serve(listener)
	}()

	return &dummyTarget{listener: listener, server: server}, nil
}

// URL returns the target's base URL.
func (t *dummyTarget) URL() string {
	return "http://" + t.listener.Addr().String()
}

func (t *dummyTarget) Close() {
	_ = t.server.Close()
}
