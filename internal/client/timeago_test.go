package client

import (
	"testing"
	"time"
)

func TestTimeAgo(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "à l'instant"},
		{time.Minute, "il y a 1 minute"},
		{5 * time.Minute, "il y a 5 minutes"},
		{2 * time.Hour, "il y a 2 heures"},
		{3 * 24 * time.Hour, "il y a 3 jours"},
		{60 * 24 * time.Hour, "il y a 2 mois"},
		{400 * 24 * time.Hour, "il y a 1 an"},
	}
	for _, tt := range tests {
		if got := TimeAgo(now.Add(-tt.ago), now); got != tt.want {
			t.Errorf("TimeAgo(-%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
}

func TestOfflineBanner(t *testing.T) {
	now := time.Now()
	if got := OfflineBanner(time.Time{}, now); got != "Vous êtes hors ligne. Les données peuvent ne pas être à jour." {
		t.Errorf("unexpected banner %q", got)
	}
	if got := OfflineBanner(now.Add(-5*time.Minute), now); got != "Vous êtes hors ligne. Dernière mise à jour : il y a 5 minutes." {
		t.Errorf("unexpected banner %q", got)
	}
}
