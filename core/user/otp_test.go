package user

import (
	"testing"
	"time"
)

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 20; i++ {
		otp, err := GenerateOTP()
		if err != nil {
			t.Fatalf("GenerateOTP(): %v", err)
		}
		if len(otp) != otpLength {
			t.Fatalf("len = %d; want %d", len(otp), otpLength)
		}
		for _, c := range otp {
			if c < '0' || c > '9' {
				t.Fatalf("OTP %q contains non-digit %q", otp, c)
			}
		}
	}
}

func TestHashOTP(t *testing.T) {
	h1 := HashOTP("123456")
	h2 := HashOTP("123456")
	if h1 != h2 {
		t.Errorf("hash not deterministic: %s != %s", h1, h2)
	}
	if len(h1) != 64 { // hex-encoded SHA-256
		t.Errorf("len = %d; want 64", len(h1))
	}
	if h1 == HashOTP("654321") {
		t.Error("different OTPs hash to the same digest")
	}
}

func TestVerifyOTP(t *testing.T) {
	defer func() { NowFunc = time.Now }()

	now := time.Date(2021, 3, 14, 15, 9, 26, 0, time.UTC)
	NowFunc = func() time.Time { return now }

	usr := User{
		ResetOTPHash:    HashOTP("123456"),
		ResetOTPExpires: now.Add(10 * time.Minute),
	}

	tests := []struct {
		name    string
		usr     User
		otp     string
		at      time.Time
		wantErr error
	}{
		{name: "valid", usr: usr, otp: "123456", at: now},
		{name: "valid at expiry boundary", usr: usr, otp: "123456", at: now.Add(10 * time.Minute)},
		{name: "wrong code", usr: usr, otp: "654321", at: now, wantErr: errInvalidOTP},
		{name: "empty code", usr: usr, otp: "", at: now, wantErr: errInvalidOTP},
		{name: "no OTP requested", usr: User{}, otp: "123456", at: now, wantErr: errInvalidOTP},
		{name: "expired", usr: usr, otp: "123456", at: now.Add(11 * time.Minute), wantErr: errOTPExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			NowFunc = func() time.Time { return tt.at }
			if err := verifyOTP(tt.usr, tt.otp); err != tt.wantErr {
				t.Errorf("verifyOTP() = %v; want %v", err, tt.wantErr)
			}
		})
	}
}
