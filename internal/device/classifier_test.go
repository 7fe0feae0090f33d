package device

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		ua   string
		want Class
	}{
		{"empty", "", ClassDesktop},
		{"mac chrome", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36", ClassDesktop},
		{"windows firefox", "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:120.0) Gecko/20100101 Firefox/120.0", ClassDesktop},
		{"linux curl", "curl/8.4.0", ClassDesktop},
		{"iphone", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148 Safari/604.1", ClassMobile},
		{"android phone", "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Mobile Safari/537.36", ClassMobile},
		{"windows phone", "Mozilla/5.0 (Windows Phone 10.0; Android 6.0.1; Microsoft; Lumia 950) IEMobile/11.0", ClassMobile},
		{"opera mini", "Opera/9.80 (J2ME/MIDP; Opera Mini/9.80) Presto/2.5.25 Version/10.54", ClassMobile},
		{"ipad", "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Safari/604.1", ClassTablet},
		{"android tablet no mobile token", "Mozilla/5.0 (Linux; Android 13; SM-X906C) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36", ClassTablet},
		{"kindle", "Mozilla/5.0 (Linux; U; Android 4.4.3; KFTHWI) Silk/47.1.79 Safari/537.36", ClassTablet},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.ua); got != tc.want {
				t.Errorf("Classify(%q) = %q, want %q", tc.ua, got, tc.want)
			}
		})
	}
}

func TestMobileBucket(t *testing.T) {
	if !ClassMobile.MobileBucket() {
		t.Error("mobile should be in the mobile bucket")
	}
	if !ClassTablet.MobileBucket() {
		t.Error("tablet should be in the mobile bucket")
	}
	if ClassDesktop.MobileBucket() {
		t.Error("desktop should not be in the mobile bucket")
	}
}
