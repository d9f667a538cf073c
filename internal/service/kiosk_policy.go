package service

import (
	"net/url"
	"quizdesk_backend/internal/config"
	"strconv"
	"strings"
)

// errConnectionRefused Chromium 的 ERR_CONNECTION_REFUSED
const errConnectionRefused = -6

// KioskPolicy 锁定模式策略，下发给桌面客户端，服务端用同一规则判定上报的违规
type KioskPolicy struct {
	AppOrigin         string   `json:"appOrigin"`
	BlockedKeys       []string `json:"blockedKeys"`
	BlockModifiers    bool     `json:"blockModifiers"`
	BlockFunctionKeys bool     `json:"blockFunctionKeys"`
	AutoSubmitOnBlur  bool     `json:"autoSubmitOnBlur"`
	ReloadDelayMs     int      `json:"reloadDelayMs"`
	RetryErrorCodes   []int    `json:"retryErrorCodes"`
}

func NewKioskPolicy(cfg config.KioskConfig) KioskPolicy {
	return KioskPolicy{
		AppOrigin:         strings.TrimRight(cfg.AppOrigin, "/"),
		BlockedKeys:       append([]string(nil), cfg.BlockedKeys...),
		BlockModifiers:    true,
		BlockFunctionKeys: true,
		AutoSubmitOnBlur:  cfg.AutoSubmitOnBlur,
		ReloadDelayMs:     cfg.ReloadDelayMs,
		RetryErrorCodes:   []int{errConnectionRefused},
	}
}

type KeyEvent struct {
	Key     string `json:"key"`
	Control bool   `json:"ctrl"`
	Alt     bool   `json:"alt"`
	Meta    bool   `json:"meta"`
}

// isFunctionKey 只匹配 F1-F24，普通的大写字母 F 不算
func isFunctionKey(key string) bool {
	if len(key) < 2 || key[0] != 'F' {
		return false
	}
	n, err := strconv.Atoi(key[1:])
	return err == nil && n >= 1 && n <= 24
}

func (p KioskPolicy) BlocksKey(ev KeyEvent) bool {
	if p.BlockModifiers && (ev.Control || ev.Alt || ev.Meta) {
		return true
	}
	if p.BlockFunctionKeys && isFunctionKey(ev.Key) {
		return true
	}
	for _, k := range p.BlockedKeys {
		if strings.EqualFold(k, ev.Key) {
			return true
		}
	}
	return false
}

// AllowsNavigation 只允许跳转到应用自身的 origin
func (p KioskPolicy) AllowsNavigation(target string) bool {
	allowed, err := url.Parse(p.AppOrigin)
	if err != nil || allowed.Host == "" {
		return false
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, allowed.Scheme) && strings.EqualFold(u.Host, allowed.Host)
}

func (p KioskPolicy) ShouldRetryLoad(errorCode int) bool {
	for _, c := range p.RetryErrorCodes {
		if c == errorCode {
			return true
		}
	}
	return false
}
