package catalog

func defaultWeekDays() []Entry {
	return []Entry{
		{Code: "1", Name: "Monday"},
		{Code: "2", Name: "Tuesday"},
		{Code: "3", Name: "Wednesday"},
		{Code: "4", Name: "Thursday"},
		{Code: "5", Name: "Friday"},
		{Code: "6", Name: "Saturday"},
		{Code: "7", Name: "Sunday"},
	}
}

func defaultCountries() []Entry {
	return []Entry{
		{Code: "CO", Name: "Colombia"},
		{Code: "MX", Name: "Mexico"},
		{Code: "PE", Name: "Peru"},
		{Code: "EC", Name: "Ecuador"},
		{Code: "CL", Name: "Chile"},
		{Code: "US", Name: "United States"},
		{Code: "ES", Name: "Spain"},
	}
}

func defaultCities() []City {
	return []City{
		{Code: "CO-BOG", Name: "Bogota", CountryCode: "CO"},
		{Code: "CO-MED", Name: "Medellin", CountryCode: "CO"},
		{Code: "CO-CLO", Name: "Cali", CountryCode: "CO"},
		{Code: "CO-BAQ", Name: "Barranquilla", CountryCode: "CO"},
		{Code: "MX-MEX", Name: "Mexico City", CountryCode: "MX"},
		{Code: "MX-GDL", Name: "Guadalajara", CountryCode: "MX"},
		{Code: "PE-LIM", Name: "Lima", CountryCode: "PE"},
		{Code: "EC-UIO", Name: "Quito", CountryCode: "EC"},
		{Code: "CL-SCL", Name: "Santiago", CountryCode: "CL"},
		{Code: "US-MIA", Name: "Miami", CountryCode: "US"},
		{Code: "ES-MAD", Name: "Madrid", CountryCode: "ES"},
	}
}

func defaultNationalities() []Entry {
	return []Entry{
		{Code: "CO", Name: "Colombian"},
		{Code: "MX", Name: "Mexican"},
		{Code: "PE", Name: "Peruvian"},
		{Code: "EC", Name: "Ecuadorian"},
		{Code: "CL", Name: "Chilean"},
		{Code: "US", Name: "American"},
		{Code: "ES", Name: "Spanish"},
	}
}

func defaultCurrencies() []Entry {
	return []Entry{
		{Code: "COP", Name: "Colombian peso"},
		{Code: "MXN", Name: "Mexican peso"},
		{Code: "PEN", Name: "Peruvian sol"},
		{Code: "CLP", Name: "Chilean peso"},
		{Code: "USD", Name: "United States dollar"},
		{Code: "EUR", Name: "Euro"},
	}
}
