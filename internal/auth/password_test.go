package auth

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3kret")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "s3kret" {
		t.Fatal("hash equals plaintext")
	}

	if !CheckPassword(hash, "s3kret") {
		t.Error("CheckPassword() = false for correct password")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("CheckPassword() = true for wrong password")
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Error("HashPassword(\"\") succeeded, want error")
	}
}

func TestCheckPasswordEmptyHash(t *testing.T) {
	if CheckPassword("", "") {
		t.Error("CheckPassword with empty hash = true, want false")
	}
	if CheckPassword("", "anything") {
		t.Error("CheckPassword with empty hash = true, want false")
	}
}
