//go:build e2e
// +build e2e

package db_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"mars-scraper/db"
	"mars-scraper/models"
)

func setupPostgres(t *testing.T, ctx context.Context) (*db.DB, func()) {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "mars",
			"POSTGRES_PASSWORD": "mars",
			"POSTGRES_DB":       "mars",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start postgres container")

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("postgres://mars:mars@%s:%s/mars?sslmode=disable", host, port.Port())
	store, err := db.NewDB(connStr)
	require.NoError(t, err, "failed to connect to postgres")

	cleanup := func() {
		store.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return store, cleanup
}

func sampleReport(finishedAt time.Time) *models.Report {
	r := models.NewReport(uuid.NewString(), finishedAt.Add(-time.Minute))
	r.Add(models.TaskResult{Task: models.TaskNews, Success: true, VisitedAt: finishedAt, Payload: models.NewsPayload{Title: "Rover", Summary: "Drove 10 m"}})
	r.Add(models.TaskResult{Task: models.TaskFeaturedImage, VisitedAt: finishedAt, Payload: models.FeaturedImagePayload{ImageURL: "https://www.nasa.gov/pia22313.jpg"}})
	r.Add(models.TaskResult{Task: models.TaskWeather, Success: true, VisitedAt: finishedAt, Payload: models.WeatherPayload{TweetText: "Sol 1800"}})
	r.Add(models.TaskResult{Task: models.TaskFacts, Success: true, VisitedAt: finishedAt, Payload: models.FactsPayload{TableHTML: `<table border="1" class="dataframe"><tbody><tr><td>Diameter</td><td>6,779 km</td></tr></tbody></table>`}})
	r.Add(models.TaskResult{Task: models.TaskHemispheres, Success: true, VisitedAt: finishedAt, Payload: models.HemispheresPayload{Images: []models.HemisphereImage{
		{Title: "Cerberus Hemisphere", ImageURL: "https://astrogeology.usgs.gov/cerberus.jpg"},
		{Title: "Schiaparelli Hemisphere", ImageURL: "https://astrogeology.usgs.gov/schiaparelli.jpg"},
		{Title: "Syrtis Major Hemisphere", ImageURL: "https://astrogeology.usgs.gov/syrtis.jpg"},
		{Title: "Valles Marineris Hemisphere", ImageURL: "https://astrogeology.usgs.gov/valles.jpg"},
	}}})
	r.FinishedAt = finishedAt
	return r
}

func TestRequestQueueAndReports(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	latest, err := store.GetLatestReport()
	require.NoError(t, err)
	assert.Nil(t, latest)

	first, err := store.CreateRequest(42, 100)
	require.NoError(t, err)
	second, err := store.CreateRequest(42, 101)
	require.NoError(t, err)
	assert.Equal(t, db.StatusCreated, first.Status)

	claimed, err := store.ClaimNextRequest()
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, first.ID, claimed.ID)
	assert.Equal(t, db.StatusInProgress, claimed.Status)

	now := time.Now().UTC().Truncate(time.Microsecond)
	older := sampleReport(now.Add(-time.Hour))
	require.NoError(t, store.SaveReport(older, 0))

	report := sampleReport(now)
	require.NoError(t, store.SaveReport(report, claimed.ID))
	require.NoError(t, store.UpdateRequestSheetName(claimed.ID, "Run_1_20260504"))
	require.NoError(t, store.UpdateRequestStatus(claimed.ID, db.StatusDone))

	stored, err := store.GetRequestByID(claimed.ID)
	require.NoError(t, err)
	assert.Equal(t, db.StatusDone, stored.Status)
	assert.Equal(t, report.RunID, stored.ReportID.String)
	assert.Equal(t, "Run_1_20260504", stored.SheetName.String)

	latest, err = store.GetLatestReport()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, report.RunID, latest.RunID)
	assert.True(t, latest.Complete())
	assert.Equal(t, report.News(), latest.News())
	assert.Equal(t, report.Facts(), latest.Facts())
	assert.Equal(t, report.Hemispheres(), latest.Hemispheres())
	assert.Equal(t, report.SuccessCount(), latest.SuccessCount())
	for i, res := range latest.Results {
		assert.Equal(t, models.Tasks[i], res.Task)
		assert.True(t, report.Results[i].VisitedAt.Equal(res.VisitedAt))
	}

	next, err := store.ClaimNextRequest()
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, second.ID, next.ID)

	empty, err := store.ClaimNextRequest()
	require.NoError(t, err)
	assert.Nil(t, empty)
}
