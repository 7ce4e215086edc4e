package auth

import ua "github.com/mileusna/useragent"

// ClassifyDevice derives the login-history device category from a raw
// User-Agent header. Mobile and tablet clients collapse into one bucket.
func ClassifyDevice(userAgent string) DeviceType {
	if userAgent == "" {
		return DeviceOther
	}
	parsed := ua.Parse(userAgent)
	switch {
	case parsed.Mobile || parsed.Tablet:
		return DeviceMobile
	case parsed.Desktop:
		return DeviceDesktop
	default:
		return DeviceOther
	}
}
