package domain

import "fmt"

// TraefikLabels returns the routing labels exposing the container of slug
// under <slug>.<book>.<base domain>.
func TraefikLabels(slug, bookName string, cfg TraefikConfig) map[string]string {
	router := fmt.Sprintf("traefik.http.routers.%s--%s", bookName, slug)
	labels := map[string]string{
		fmt.Sprintf("traefik.http.services.%s.loadbalancer.server.port", slug): fmt.Sprint(cfg.Port),
		router + ".rule": fmt.Sprintf("Host(`%s`)", RouteHost(slug, bookName, cfg.BaseDomain)),
	}
	if cfg.CertResolver != "" {
		labels[router+".tls.certresolver"] = cfg.CertResolver
	}
	return labels
}

// RouteHost is the public host name of a slug.
func RouteHost(slug, bookName, baseDomain string) string {
	return fmt.Sprintf("%s.%s.%s", slug, bookName, baseDomain)
}
