package db

import "testing"

func TestNormalizeDSN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  'postgres://u:p@host/db'  ", "postgres://u:p@host/db"},
		{"host=localhost dbname=billing", "host=localhost dbname=billing sslmode=disable"},
		{"host=localhost dbname=billing sslmode=require", "host=localhost dbname=billing sslmode=require"},
		{"invoicedesk.db", "invoicedesk.db"},
	}
	for _, tt := range tests {
		if got := NormalizeDSN(tt.in); got != tt.want {
			t.Errorf("NormalizeDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConnectSqliteAndMigrate(t *testing.T) {
	conn, err := Connect("file:dbtest?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := AutoMigrate(conn); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	if err := conn.Exec("SELECT count(*) FROM invoices").Error; err != nil {
		t.Fatalf("schema missing: %v", err)
	}
}
