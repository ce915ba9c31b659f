package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/propdocs-maintenance/internal/auth"
	"github.com/ukydev/propdocs-maintenance/internal/maintenance"
	"github.com/ukydev/propdocs-maintenance/internal/models"
)

// Property is the subset of a property the seeder sends.
type Property struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	ZipCode   string `json:"zip_code,omitempty"`
	YearBuilt int    `json:"year_built,omitempty"`
}

// Asset is the subset of an asset the seeder sends.
type Asset struct {
	Name           string     `json:"name"`
	Category       string     `json:"category"`
	Type           string     `json:"type"`
	Brand          string     `json:"brand,omitempty"`
	WarrantyExpiry *time.Time `json:"warranty_expiry,omitempty"`
	Condition      string     `json:"condition,omitempty"`
}

var cities = []Property{
	{City: "Austin", State: "TX", ZipCode: "78701"},
	{City: "Denver", State: "CO", ZipCode: "80202"},
	{City: "Portland", State: "OR", ZipCode: "97201"},
	{City: "Raleigh", State: "NC", ZipCode: "27601"},
	{City: "Madison", State: "WI", ZipCode: "53703"},
}

var propertyTypes = []string{"HOUSE", "CONDO", "TOWNHOUSE"}

// catalog lists the assets a seeded property gets; types match templates.
var catalog = []Asset{
	{Name: "Main Furnace", Category: "HVAC", Type: "Furnace", Brand: "Carrier"},
	{Name: "Upstairs AC", Category: "HVAC", Type: "Central Air Conditioner", Brand: "Trane"},
	{Name: "Water Heater", Category: "PLUMBING", Type: "Water Heater", Brand: "Rheem"},
	{Name: "Kitchen Fridge", Category: "APPLIANCES", Type: "Refrigerator", Brand: "LG"},
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type created struct {
	ID string `json:"id"`
}

// seeder creates demo data through the API.
type seeder struct {
	apiURL string
	token  string
	client *http.Client
}

func (s *seeder) post(path string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, s.apiURL+path, bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("POST %s: status %d: unexpected body", path, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusCreated || !env.Success {
		if env.Error != nil {
			return fmt.Errorf("POST %s: status %d: %s", path, resp.StatusCode, env.Error.Message)
		}
		return fmt.Errorf("POST %s: status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func randomProperty(i int) Property {
	p := cities[rand.Intn(len(cities))]
	p.Name = fmt.Sprintf("Demo Property %d", i+1)
	p.Type = propertyTypes[rand.Intn(len(propertyTypes))]
	p.Address = fmt.Sprintf("%d Maple Street", 100+rand.Intn(900))
	p.YearBuilt = 1950 + rand.Intn(70)
	return p
}

// withWarranty gives an asset a warranty ending within the next two years
// so warranty reminders have something to fire on.
func withWarranty(a Asset, now time.Time) Asset {
	expiry := now.AddDate(0, 0, 7+rand.Intn(720)).Truncate(24 * time.Hour)
	a.WarrantyExpiry = &expiry
	a.Condition = "GOOD"
	return a
}

// seedProperty creates one property with the catalog assets and a schedule
// for every template that fits each asset. It returns the number of
// schedules created.
func (s *seeder) seedProperty(i int, now time.Time) (int, error) {
	var property created
	if err := s.post("/properties", randomProperty(i), &property); err != nil {
		return 0, err
	}

	schedules := 0
	for _, a := range catalog {
		var asset created
		if err := s.post("/properties/"+property.ID+"/assets", withWarranty(a, now), &asset); err != nil {
			return schedules, err
		}
		for _, tmpl := range maintenance.Templates(a.Type) {
			start := now.AddDate(0, 0, -rand.Intn(60)).Truncate(24 * time.Hour)
			body := map[string]interface{}{"template_id": tmpl.ID, "start_date": start}
			if err := s.post("/assets/"+asset.ID+"/schedules/from-template", body, nil); err != nil {
				return schedules, err
			}
			schedules++
		}
		log.WithFields(log.Fields{
			"property_id": property.ID,
			"asset_id":    asset.ID,
			"type":        a.Type,
		}).Info("Seeded asset")
	}
	return schedules, nil
}

// token returns SEED_AUTH_TOKEN, or mints one for SEED_USER_ID with
// JWT_SECRET. Minted tokens use SEED_TIER, PROFESSIONAL by default, so the
// property quota does not cut the seed short.
func token() (string, error) {
	if t := os.Getenv("SEED_AUTH_TOKEN"); t != "" {
		return t, nil
	}
	userID := os.Getenv("SEED_USER_ID")
	if userID == "" {
		userID = "demo-user"
	}
	tier := models.SubscriptionTier(os.Getenv("SEED_TIER"))
	if tier == "" {
		tier = models.TierProfessional
	}
	return auth.NewService(os.Getenv("JWT_SECRET"), time.Hour).GenerateToken(userID, userID+"@example.com", tier)
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Failed to load .env file")
	}

	count := 3
	if val := os.Getenv("SEED_PROPERTIES"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			count = n
		}
	}

	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}

	t, err := token()
	if err != nil {
		log.WithError(err).Fatal("Failed to create auth token")
	}
	s := &seeder{apiURL: apiURL, token: t, client: &http.Client{Timeout: 10 * time.Second}}

	log.WithFields(log.Fields{
		"properties": count,
		"api_url":    apiURL,
	}).Info("Seeding demo data")

	total := 0
	now := time.Now().UTC()
	for i := 0; i < count; i++ {
		n, err := s.seedProperty(i, now)
		total += n
		if err != nil {
			log.WithError(err).Error("Failed to seed property")
			continue
		}
	}
	log.WithField("schedules", total).Info("Seeding completed")
}
