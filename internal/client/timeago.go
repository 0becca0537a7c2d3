package client

import (
	"fmt"
	"math"
	"time"
)

// TimeAgo renders the age of t in French, as shown in the offline banner.
func TimeAgo(t, now time.Time) string {
	seconds := math.Round(now.Sub(t).Seconds())
	if seconds < 60 {
		return "à l'instant"
	}
	minutes := int(math.Round(seconds / 60))
	if minutes < 60 {
		return fmt.Sprintf("il y a %d minute%s", minutes, plural(minutes))
	}
	hours := int(math.Round(float64(minutes) / 60))
	if hours < 24 {
		return fmt.Sprintf("il y a %d heure%s", hours, plural(hours))
	}
	days := int(math.Round(float64(hours) / 24))
	if days < 30 {
		return fmt.Sprintf("il y a %d jour%s", days, plural(days))
	}
	months := int(math.Round(float64(days) / 30))
	if months < 12 {
		return fmt.Sprintf("il y a %d mois", months)
	}
	years := int(math.Round(float64(months) / 12))
	return fmt.Sprintf("il y a %d an%s", years, plural(years))
}

func plural(n int) string {
	if n > 1 {
		return "s"
	}
	return ""
}

// OfflineBanner is the notice printed when data comes from the snapshot.
func OfflineBanner(lastUpdated, now time.Time) string {
	if lastUpdated.IsZero() {
		return "Vous êtes hors ligne. Les données peuvent ne pas être à jour."
	}
	return fmt.Sprintf("Vous êtes hors ligne. Dernière mise à jour : %s.", TimeAgo(lastUpdated, now))
}
