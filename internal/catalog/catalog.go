// Package catalog holds the immutable reference data every view looks up by
// code: hours, week days, countries, cities, nationalities and currencies.
// A Context is built once at startup and injected into its consumers; after
// construction nothing mutates it, so concurrent reads need no locking.
package catalog

import (
	"sort"
	"strconv"

	"dcc-backend/internal/schedule"
)

type Entry struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type Hour struct {
	Code    string `json:"code"`
	Display string `json:"display"`
}

type City struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	CountryCode string `json:"country_code"`
}

type Context struct {
	hours         []Hour
	weekDays      []Entry
	countries     []Entry
	cities        []City
	nationalities []Entry
	currencies    []Entry

	hourByCode     map[string]Hour
	countryByCode  map[string]Entry
	currencyByCode map[string]Entry
}

func NewContext() *Context {
	c := &Context{
		weekDays:      defaultWeekDays(),
		countries:     defaultCountries(),
		cities:        defaultCities(),
		nationalities: defaultNationalities(),
		currencies:    defaultCurrencies(),
	}

	for h := 0; h < 24; h++ {
		hour := Hour{Code: strconv.Itoa(h), Display: schedule.HourCodeToClock(h)}
		c.hours = append(c.hours, hour)
	}

	c.hourByCode = make(map[string]Hour, len(c.hours))
	for _, h := range c.hours {
		c.hourByCode[h.Code] = h
	}
	c.countryByCode = make(map[string]Entry, len(c.countries))
	for _, e := range c.countries {
		c.countryByCode[e.Code] = e
	}
	c.currencyByCode = make(map[string]Entry, len(c.currencies))
	for _, e := range c.currencies {
		c.currencyByCode[e.Code] = e
	}

	return c
}

func (c *Context) Hours() []Hour {
	return append([]Hour(nil), c.hours...)
}

func (c *Context) WeekDays() []Entry {
	return append([]Entry(nil), c.weekDays...)
}

func (c *Context) Countries() []Entry {
	return append([]Entry(nil), c.countries...)
}

func (c *Context) Nationalities() []Entry {
	return append([]Entry(nil), c.nationalities...)
}

func (c *Context) Currencies() []Entry {
	return append([]Entry(nil), c.currencies...)
}

func (c *Context) HourDisplay(code string) (string, bool) {
	h, ok := c.hourByCode[code]
	return h.Display, ok
}

func (c *Context) Country(code string) (Entry, bool) {
	e, ok := c.countryByCode[code]
	return e, ok
}

func (c *Context) Currency(code string) (Entry, bool) {
	e, ok := c.currencyByCode[code]
	return e, ok
}

func (c *Context) CitiesForCountry(countryCode string) []City {
	out := make([]City, 0)
	for _, city := range c.cities {
		if city.CountryCode == countryCode {
			out = append(out, city)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Snapshot bundles everything for the one-shot load the frontend does at
// session start.
type Snapshot struct {
	Hours         []Hour  `json:"hours"`
	WeekDays      []Entry `json:"week_days"`
	Countries     []Entry `json:"countries"`
	Cities        []City  `json:"cities"`
	Nationalities []Entry `json:"nationalities"`
	Currencies    []Entry `json:"currencies"`
}

func (c *Context) Snapshot() Snapshot {
	return Snapshot{
		Hours:         c.Hours(),
		WeekDays:      c.WeekDays(),
		Countries:     c.Countries(),
		Cities:        append([]City(nil), c.cities...),
		Nationalities: c.Nationalities(),
		Currencies:    c.Currencies(),
	}
}
