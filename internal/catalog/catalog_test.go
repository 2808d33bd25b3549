package catalog

import "testing"

func TestHoursCoverFullDay(t *testing.T) {
	c := NewContext()

	hours := c.Hours()
	if len(hours) != 24 {
		t.Fatalf("expected 24 hours, got %d", len(hours))
	}
	if hours[0].Code != "0" || hours[0].Display != "00:00" {
		t.Fatalf("unexpected first hour: %+v", hours[0])
	}
	if hours[23].Code != "23" || hours[23].Display != "23:00" {
		t.Fatalf("unexpected last hour: %+v", hours[23])
	}
}

func TestHourDisplayLookup(t *testing.T) {
	c := NewContext()

	display, ok := c.HourDisplay("9")
	if !ok || display != "09:00" {
		t.Fatalf("expected 09:00, got %q ok=%v", display, ok)
	}
	if _, ok := c.HourDisplay("24"); ok {
		t.Fatal("hour code 24 should not resolve")
	}
}

func TestCountryAndCurrencyLookup(t *testing.T) {
	c := NewContext()

	country, ok := c.Country("CO")
	if !ok || country.Name != "Colombia" {
		t.Fatalf("expected Colombia, got %+v ok=%v", country, ok)
	}
	if _, ok := c.Country("ZZ"); ok {
		t.Fatal("unknown country code should not resolve")
	}

	cur, ok := c.Currency("COP")
	if !ok || cur.Name == "" {
		t.Fatalf("expected COP entry, got %+v ok=%v", cur, ok)
	}
	if _, ok := c.Currency("XXX"); ok {
		t.Fatal("unknown currency code should not resolve")
	}
}

func TestCitiesForCountrySortedByName(t *testing.T) {
	c := NewContext()

	cities := c.CitiesForCountry("CO")
	if len(cities) == 0 {
		t.Fatal("expected cities for CO")
	}
	for i := 1; i < len(cities); i++ {
		if cities[i-1].Name > cities[i].Name {
			t.Fatalf("cities not sorted: %q before %q", cities[i-1].Name, cities[i].Name)
		}
	}
	for _, city := range cities {
		if city.CountryCode != "CO" {
			t.Fatalf("city %q belongs to %q", city.Name, city.CountryCode)
		}
	}
	if got := c.CitiesForCountry("ZZ"); len(got) != 0 {
		t.Fatalf("expected no cities for unknown country, got %d", len(got))
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	c := NewContext()

	snap := c.Snapshot()
	if len(snap.Hours) != 24 || len(snap.Countries) == 0 || len(snap.Currencies) == 0 {
		t.Fatalf("incomplete snapshot: %+v", snap)
	}

	snap.Countries[0].Name = "mutated"
	if fresh := c.Snapshot(); fresh.Countries[0].Name == "mutated" {
		t.Fatal("snapshot shares backing storage with the context")
	}
}
