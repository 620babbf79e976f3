package models

import "fmt"

// Season is the season code of a daily record (1-4)
type Season int

const (
	SeasonSpring Season = iota + 1
	SeasonSummer
	SeasonFall
	SeasonWinter
)

// Seasons lists every season in display order
var Seasons = [...]Season{SeasonSpring, SeasonSummer, SeasonFall, SeasonWinter}

var seasonLabels = map[Season]string{
	SeasonSpring: "Spring",
	SeasonSummer: "Summer",
	SeasonFall:   "Fall",
	SeasonWinter: "Winter",
}

// Valid reports whether s is a known season code
func (s Season) Valid() bool {
	_, ok := seasonLabels[s]
	return ok
}

// Label returns the display name of the season
func (s Season) Label() string {
	if label, ok := seasonLabels[s]; ok {
		return label
	}
	return fmt.Sprintf("Season(%d)", int(s))
}

// Index returns the zero-based position of the season in display order
func (s Season) Index() int {
	return int(s) - 1
}

// ParseSeason validates a raw season code
func ParseSeason(code int) (Season, error) {
	s := Season(code)
	if !s.Valid() {
		return 0, &UnknownEnumValueError{Enum: "season", Value: code}
	}
	return s, nil
}

// WeatherSituation is the coded daily weather category (1-4)
type WeatherSituation int

const (
	WeatherClear WeatherSituation = iota + 1
	WeatherMistCloudy
	WeatherLightSnowRain
	WeatherHeavyRainSnow
)

// WeatherSituations lists every weather situation in code order
var WeatherSituations = [...]WeatherSituation{
	WeatherClear,
	WeatherMistCloudy,
	WeatherLightSnowRain,
	WeatherHeavyRainSnow,
}

var weatherLabels = map[WeatherSituation]string{
	WeatherClear:         "Clear",
	WeatherMistCloudy:    "Mist + Cloudy",
	WeatherLightSnowRain: "Light Snow, Light Rain",
	WeatherHeavyRainSnow: "Heavy Rain, Snow",
}

// Valid reports whether w is a known weather code
func (w WeatherSituation) Valid() bool {
	_, ok := weatherLabels[w]
	return ok
}

// Label returns the human-readable weather label
func (w WeatherSituation) Label() (string, error) {
	label, ok := weatherLabels[w]
	if !ok {
		return "", &UnknownEnumValueError{Enum: "weathersit", Value: int(w)}
	}
	return label, nil
}

// ParseWeatherSituation validates a raw weathersit code
func ParseWeatherSituation(code int) (WeatherSituation, error) {
	w := WeatherSituation(code)
	if !w.Valid() {
		return 0, &UnknownEnumValueError{Enum: "weathersit", Value: code}
	}
	return w, nil
}

// YearFlag partitions the dataset into its two calendar years (0 or 1)
type YearFlag int

// BaseYear is the calendar year of YearFlag 0
const BaseYear = 2011

const (
	Year2011 YearFlag = 0
	Year2012 YearFlag = 1
)

// YearFlags lists both year partitions
var YearFlags = [...]YearFlag{Year2011, Year2012}

// Valid reports whether y is 0 or 1
func (y YearFlag) Valid() bool {
	return y == Year2011 || y == Year2012
}

// Year returns the calendar year of the partition
func (y YearFlag) Year() int {
	return BaseYear + int(y)
}

// ParseYearFlag validates a raw yr value
func ParseYearFlag(flag int) (YearFlag, error) {
	y := YearFlag(flag)
	if !y.Valid() {
		return 0, &UnknownEnumValueError{Enum: "yr", Value: flag}
	}
	return y, nil
}

// YearFlagFor maps a calendar year to its partition flag
func YearFlagFor(year int) (YearFlag, error) {
	return ParseYearFlag(year - BaseYear)
}

// MonthsPerYear is the fixed width of monthly series
const MonthsPerYear = 12

var monthLabels = [MonthsPerYear]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// ValidMonth reports whether m is in 1..12
func ValidMonth(m int) bool {
	return m >= 1 && m <= MonthsPerYear
}

// MonthLabel returns the English month name for m (1-12)
func MonthLabel(m int) string {
	if !ValidMonth(m) {
		return fmt.Sprintf("Month(%d)", m)
	}
	return monthLabels[m-1]
}

// Label tables must cover every declared value
func init() {
	for _, s := range Seasons {
		if _, ok := seasonLabels[s]; !ok {
			panic(fmt.Sprintf("models: season %d has no label", int(s)))
		}
	}
	if len(seasonLabels) != len(Seasons) {
		panic("models: season label table has extra entries")
	}
	for _, w := range WeatherSituations {
		if _, ok := weatherLabels[w]; !ok {
			panic(fmt.Sprintf("models: weather situation %d has no label", int(w)))
		}
	}
	if len(weatherLabels) != len(WeatherSituations) {
		panic("models: weather label table has extra entries")
	}
}
