package cmd

import (
	"fmt"
	"strings"

	"github.com/grandcat/zeroconf"
	"github.com/rubiojr/textboard/pkg/config"
	"github.com/rubiojr/textboard/pkg/version"
)

// advertise registers the board on the local network. The returned stop
// function withdraws the advertisement.
func advertise(cfg *config.Config) (stop func(), err error) {
	if !cfg.MDNS.Enabled {
		return func() {}, nil
	}

	service := strings.TrimSpace(cfg.MDNS.Service)
	if service == "" {
		service = config.DefaultMDNSService
	}
	instance := strings.TrimSpace(cfg.MDNS.Instance)
	if instance == "" {
		instance = config.DefaultMDNSInstance
	}

	srv, err := zeroconf.Register(instance, service, "local.", cfg.Server.Port, mdnsTXT(cfg), nil)
	if err != nil {
		return func() {}, fmt.Errorf("registering mdns service %s: %w", service, err)
	}
	serveLogger.Infof("mdns advertising %s as %q on port %d", service, instance, cfg.Server.Port)
	return srv.Shutdown, nil
}

// mdnsTXT describes the board in the advertisement's TXT records.
func mdnsTXT(cfg *config.Config) []string {
	txt := []string{
		"version=" + version.Version,
		"path=/api",
	}
	if base := strings.TrimSpace(cfg.Server.BaseURL); base != "" && !strings.ContainsAny(base, "\r\n") {
		txt = append(txt, "url="+base)
	}
	return txt
}
