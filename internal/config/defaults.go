package config

import "time"

// Default activities exported from the registry when none are requested.
var DefaultActivities = []string{
	"Apartamento turístico",
	"Casa rural",
	"Vivienda de uso turístico",
	"Vivienda turística de alojamiento rural",
}

// Default returns the configuration used for every option the file leaves unset.
// Load times of 8s were tuned against a 300Mbps connection.
func Default() Config {
	headless := true
	respectRobots := true
	frame := 0

	cfg := Config{
		Browser: BrowserConfig{
			Name:        "firefox",
			Args:        []string{"--headless", "--no-sandbox"},
			Headless:    &headless,
			DownloadDir: "downloads",
		},
		Listings: ListingsConfig{
			StartURL:        "https://www.airbnb.es/s/Granada--España/homes",
			LoadTime:        8 * time.Second,
			ClickTime:       1 * time.Second,
			NextPage:        SelectorConfig{By: "class", Value: "c1ytbx3a"},
			ListingSelector: ".c1l1h97y",
			URLSelector:     `meta[itemprop="url"]`,
			URLAttribute:    "content",
			HostSelector:    `div[data-section-id="HOST_OVERVIEW_DEFAULT"]`,
			HostnameClass:   "t1pxe1a4",
			PermitClass:     "c2a9hgn",
			CSVHeaders:      []string{"URL", "HOST", "PERMIT"},
			Fetcher:         "browser",
		},
		Registry: RegistryConfig{
			URL:                   "https://www.juntadeandalucia.es/organismos/turismoyandaluciaexterior/areas/turismo/registro-turismo/buscador-establecimientos-servicios-turisticos.html",
			LoadTime:              8 * time.Second,
			ClickTime:             1 * time.Second,
			Activity:              SelectorConfig{By: "xpath", Value: "//select[@id='tipo_objeto_id']"},
			Province:              SelectorConfig{By: "xpath", Value: "//select[@id='provincia']"},
			ProvinceName:          "GRANADA",
			Municipality:          SelectorConfig{By: "xpath", Value: "//select[@id='municipio']"},
			MunicipalityName:      "GRANADA",
			Search:                SelectorConfig{By: "xpath", Value: "//input[@id='buscar']"},
			Excel:                 SelectorConfig{By: "css", Value: "a[onclick='exportarExcel()']"},
			ExportedFilename:      "exportacion.xlsx",
			ResultsWaitFactor:     3,
			DownloadTimeoutFactor: 3,
			FrameIndex:            &frame,
			PollInterval:          time.Second,
		},
		HTTP: HTTPConfig{
			UserAgent:     "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0",
			RatePerSecond: 1,
			Burst:         1,
			Timeout:       30 * time.Second,
			RespectRobots: &respectRobots,
		},
		DB: DBConfig{
			Database: "tourism_watch",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
	cfg.DB.Collections.Listings = "listings"
	cfg.DB.Collections.Exports = "exports"
	return cfg
}
