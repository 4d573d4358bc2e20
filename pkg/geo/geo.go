package geo

import (
	"fmt"
	"net"
	"time"

	"go-botlens/pkg/logger"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/oschwald/geoip2-golang"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultCacheSize = 10000
	DefaultCacheTTL  = 24 * time.Hour
)

// CityReader geoip2.Reader 的最小子集
type CityReader interface {
	City(ip net.IP) (*geoip2.City, error)
}

// Resolver IP -> 国家代码，结果（包括查不到的）缓存 24 小时
type Resolver struct {
	reader CityReader
	closer func() error
	cache  *expirable.LRU[string, string]
	group  singleflight.Group
}

// Open 打开 GeoLite2-City 库
func Open(path string, size int, ttl time.Duration) (*Resolver, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开GeoIP库失败: %w", err)
	}
	r := NewResolver(reader, size, ttl)
	r.closer = reader.Close
	return r, nil
}

func NewResolver(reader CityReader, size int, ttl time.Duration) *Resolver {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Resolver{
		reader: reader,
		cache:  expirable.NewLRU[string, string](size, nil, ttl),
	}
}

// Lookup 返回两位国家代码。内网、回环等地址不查询
func (r *Resolver) Lookup(ipStr string) (string, bool) {
	ip := net.ParseIP(ipStr)
	if ip == nil || !routable(ip) {
		return "", false
	}

	if code, ok := r.cache.Get(ipStr); ok {
		return code, code != ""
	}

	v, _, _ := r.group.Do(ipStr, func() (interface{}, error) {
		code := ""
		record, err := r.reader.City(ip)
		if err != nil {
			logger.Log.Warnf("GeoIP查询失败: ip=%s, error=%v", ipStr, err)
		} else {
			code = record.Country.IsoCode
		}
		r.cache.Add(ipStr, code)
		return code, nil
	})

	code := v.(string)
	return code, code != ""
}

func (r *Resolver) Close() error {
	if r.closer != nil {
		return r.closer()
	}
	return nil
}

func routable(ip net.IP) bool {
	return !(ip.IsPrivate() || ip.IsLoopback() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast())
}
