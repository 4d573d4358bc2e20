package ipverify

import (
	"net"
	"strings"
	"sync"

	"go-botlens/pkg/logger"
)

// RangeSet 爬虫厂商公布的 IP 段
type RangeSet struct {
	nets []*net.IPNet
	mu   sync.RWMutex
}

func NewRangeSet(cidrs []string) *RangeSet {
	r := &RangeSet{}
	r.Update(cidrs)
	return r
}

// Update 整体替换，单个 IP 按 /32 或 /128 处理
func (r *RangeSet) Update(cidrs []string) {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		if !strings.Contains(c, "/") {
			if strings.Contains(c, ":") {
				c += "/128"
			} else {
				c += "/32"
			}
		}

		_, ipnet, err := net.ParseCIDR(c)
		if err != nil {
			logger.Log.Errorf("无效的CIDR格式: %s, 错误: %v", c, err)
			continue
		}
		nets = append(nets, ipnet)
	}

	r.mu.Lock()
	r.nets = nets
	r.mu.Unlock()
}

func (r *RangeSet) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nets)
}

func (r *RangeSet) Contains(ip net.IP) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ipnet := range r.nets {
		if ipnet.Contains(ip) {
			logger.Log.Debugf("IP %s 命中网段 %s", ip, ipnet)
			return true
		}
	}
	return false
}
