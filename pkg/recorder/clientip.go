package recorder

import (
	"net"
	"strings"

	"go-botlens/pkg/models"
)

// ClientIP 事件自带的 ClientIP 优先；信任代理头时依次取 X-Forwarded-For 第一个合法地址、X-Real-IP；最后取对端地址
func ClientIP(ev *models.VisitEvent, trustProxyHeaders bool) string {
	if ip := validIP(ev.ClientIP); ip != "" {
		return ip
	}

	if trustProxyHeaders {
		for _, part := range strings.Split(ev.ForwardedFor, ",") {
			if ip := validIP(part); ip != "" {
				return ip
			}
		}
		if ip := validIP(ev.RealIP); ip != "" {
			return ip
		}
	}

	addr := strings.TrimSpace(ev.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	return validIP(addr)
}

func validIP(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}
