package integration

import (
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/strata-ingest/granule-discovery/internal/config"
	"github.com/strata-ingest/granule-discovery/internal/dedupe"
	"github.com/strata-ingest/granule-discovery/internal/discovery"
	"github.com/strata-ingest/granule-discovery/test-integration/discovery/helpers"
)

var _ = Describe("Catalog Duplicate Resolution", Label("catalog"), func() {
	const (
		granuleA = "MOD09GQ.A2017025.h21v00.006.2017034065104"
		granuleB = "MOD09GQ.A2017026.h21v00.006.2017035065104"
	)

	var (
		tempDir        string
		providerServer *helpers.MockProviderServer
		catalogServer  *helpers.MockCatalogServer
	)

	BeforeEach(func() {
		tempDir = createTempDir("catalog-test-")

		providerServer = helpers.NewMockProviderBuilder().
			WithListing("granules/MOD09GQ", granuleA+".hdf", granuleB+".hdf").
			Build()
	})

	AfterEach(func() {
		providerServer.Close()
		if catalogServer != nil {
			catalogServer.Close()
			catalogServer = nil
		}
		cleanupTempDir(tempDir)
	})

	// writePayload writes a rule-free payload for the given policy
	writePayload := func(policy string) string {
		return helpers.WritePayloadYAML(tempDir, helpers.PayloadOptions{
			Host:   providerServer.Host(),
			Port:   providerServer.Port(),
			Policy: policy,
		})
	}

	Context("Skip Policy", func() {
		It("should drop granules the catalog already holds", func() {
			catalogServer = helpers.NewMockCatalogBuilder().
				WithExistingGranules(granuleA).
				Build()

			runner := helpers.NewDiscoveryRunner(catalogServer.URL)
			result, err := runner.Discover(ctx, writePayload("skip"))
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Granules).To(HaveLen(1))
			Expect(result.Granules[0].GranuleID).To(Equal(granuleB))
			Expect(result.Summary.Policy).To(Equal(config.DuplicateSkip))
			Expect(result.Summary.DuplicatesFiltered).To(Equal(1))

			// Both granules were looked up with the issued bearer token,
			// and the token was fetched exactly once for the run
			Expect(catalogServer.Lookups()).To(ConsistOf(granuleA, granuleB))
			Expect(catalogServer.UnauthorizedLookups()).To(BeEmpty())
			Expect(catalogServer.TokenRequests()).To(Equal(1))
		})
	})

	Context("Error Policy", func() {
		It("should fail the run on a duplicate granule", func() {
			catalogServer = helpers.NewMockCatalogBuilder().
				WithExistingGranules(granuleB).
				Build()

			runner := helpers.NewDiscoveryRunner(catalogServer.URL)
			result, err := runner.Discover(ctx, writePayload("error"))
			Expect(err).To(HaveOccurred())
			Expect(result).To(BeNil())

			var conflict *dedupe.ConflictError
			Expect(errors.As(err, &conflict)).To(BeTrue())
			Expect(conflict.GranuleID).To(Equal(granuleB))

			var discErr *discovery.Error
			Expect(errors.As(err, &discErr)).To(BeTrue())
			Expect(discErr.Stage).To(Equal(discovery.StageResolution))
		})

		It("should succeed when nothing is duplicated", func() {
			catalogServer = helpers.NewMockCatalogBuilder().Build()

			runner := helpers.NewDiscoveryRunner(catalogServer.URL)
			result, err := runner.Discover(ctx, writePayload("error"))
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Granules).To(HaveLen(2))
			Expect(result.Summary.DuplicatesFiltered).To(Equal(0))
		})
	})

	Context("Replace and Version Policies", func() {
		It("should emit every granule without consulting the catalog", func() {
			catalogServer = helpers.NewMockCatalogBuilder().
				WithExistingGranules(granuleA, granuleB).
				Build()

			runner := helpers.NewDiscoveryRunner(catalogServer.URL)
			result, err := runner.Discover(ctx, writePayload("replace"))
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Granules).To(HaveLen(2))
			Expect(catalogServer.Lookups()).To(BeEmpty())
			Expect(catalogServer.TokenRequests()).To(BeZero())
		})

		It("should treat the version policy the same way", func() {
			catalogServer = helpers.NewMockCatalogBuilder().
				WithExistingGranules(granuleA).
				Build()

			runner := helpers.NewDiscoveryRunner(catalogServer.URL)
			result, err := runner.Discover(ctx, writePayload("version"))
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Granules).To(HaveLen(2))
			Expect(catalogServer.Lookups()).To(BeEmpty())
		})
	})

	Context("Catalog Outages", func() {
		It("should fail the run instead of inferring absence", func() {
			catalogServer = helpers.NewMockCatalogBuilder().
				WithLookupFailure(http.StatusInternalServerError).
				Build()

			runner := helpers.NewDiscoveryRunner(catalogServer.URL)
			result, err := runner.Discover(ctx, writePayload("skip"))
			Expect(err).To(HaveOccurred())
			Expect(result).To(BeNil())

			var discErr *discovery.Error
			Expect(errors.As(err, &discErr)).To(BeTrue())
			Expect(discErr.Stage).To(Equal(discovery.StageResolution))

			var conflict *dedupe.ConflictError
			Expect(errors.As(err, &conflict)).To(BeFalse())
		})

		It("should fail when the token endpoint rejects the login", func() {
			catalogServer = helpers.NewMockCatalogBuilder().
				WithTokenFailure(http.StatusUnauthorized).
				Build()

			runner := helpers.NewDiscoveryRunner(catalogServer.URL)
			result, err := runner.Discover(ctx, writePayload("skip"))
			Expect(err).To(HaveOccurred())
			Expect(result).To(BeNil())
			Expect(err.Error()).To(ContainSubstring("catalog token"))

			// The rejection is permanent, so the token fetch is not retried
			// and runs once for the whole invocation
			Expect(catalogServer.TokenRequests()).To(Equal(1))
		})
	})
})
