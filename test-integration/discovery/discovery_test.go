package integration

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/strata-ingest/granule-discovery/internal/discovery"
	"github.com/strata-ingest/granule-discovery/test-integration/discovery/helpers"
)

var _ = Describe("HTTP Provider Discovery", Label("http"), func() {
	const (
		granuleA = "MOD09GQ.A2017025.h21v00.006.2017034065104"
		granuleB = "MOD09GQ.A2017026.h21v00.006.2017035065104"
	)

	var (
		tempDir        string
		providerServer *helpers.MockProviderServer
	)

	BeforeEach(func() {
		tempDir = createTempDir("discovery-test-")

		providerServer = helpers.NewMockProviderBuilder().
			WithListing("granules/MOD09GQ",
				granuleA+".hdf",
				granuleA+".hdf.met",
				granuleA+"_1.jpg",
				granuleB+".hdf",
				"README.txt",
			).
			Build()
	})

	AfterEach(func() {
		providerServer.Close()
		cleanupTempDir(tempDir)
	})

	Context("Classification and Enrichment", func() {
		It("should group files into granules and apply file rules in order", func() {
			payloadPath := helpers.WritePayloadYAML(tempDir, helpers.PayloadOptions{
				Host:   providerServer.Host(),
				Port:   providerServer.Port(),
				Policy: "replace",
				Rules: []helpers.FileRuleSpec{
					{Regex: `\.hdf$`, Bucket: "protected", URLPath: "mod09gq/006", Type: "data"},
					{Regex: `\.hdf\.met$`, Bucket: "private", Type: "metadata"},
				},
				Buckets: map[string]string{
					"protected": "strata-it-protected",
					"private":   "strata-it-private",
				},
			})

			runner := helpers.NewDiscoveryRunner("")
			result, err := runner.Discover(ctx, payloadPath)
			Expect(err).NotTo(HaveOccurred())

			// README.txt does not match the granule pattern; the jpg matches
			// the pattern but no file rule, so it is dropped
			Expect(result.Summary.FilesListed).To(Equal(5))
			Expect(result.Summary.FilesMatched).To(Equal(4))
			Expect(result.Summary.GranulesDiscovered).To(Equal(2))
			Expect(result.Summary.FilesDropped).To(Equal(1))
			Expect(result.Summary.DuplicatesFiltered).To(Equal(0))

			Expect(result.Granules).To(HaveLen(2))

			first := result.Granules[0]
			Expect(first.GranuleID).To(Equal(granuleA))
			Expect(first.DataType).To(Equal("MOD09GQ"))
			Expect(first.Version).To(Equal("006"))
			Expect(first.Files).To(HaveLen(2))
			Expect(first.Files[0].Name).To(Equal(granuleA + ".hdf"))
			Expect(first.Files[0].Path).To(Equal("granules/MOD09GQ"))
			Expect(first.Files[0].Bucket).To(Equal("strata-it-protected"))
			Expect(first.Files[0].URLPath).To(Equal("mod09gq/006"))
			Expect(first.Files[0].Type).To(Equal("data"))
			Expect(first.Files[1].Name).To(Equal(granuleA + ".hdf.met"))
			Expect(first.Files[1].Bucket).To(Equal("strata-it-private"))
			Expect(first.Files[1].Type).To(Equal("metadata"))

			second := result.Granules[1]
			Expect(second.GranuleID).To(Equal(granuleB))
			Expect(second.Files).To(HaveLen(1))
			Expect(second.Files[0].Bucket).To(Equal("strata-it-protected"))
		})

		It("should pass files through untouched when enrichment is bypassed", func() {
			payloadPath := helpers.WritePayloadYAML(tempDir, helpers.PayloadOptions{
				Host:        providerServer.Host(),
				Port:        providerServer.Port(),
				Policy:      "replace",
				IgnoreFiles: true,
				Rules: []helpers.FileRuleSpec{
					{Regex: `\.hdf$`, Bucket: "protected", Type: "data"},
				},
				Buckets: map[string]string{
					"protected": "strata-it-protected",
				},
			})

			runner := helpers.NewDiscoveryRunner("")
			result, err := runner.Discover(ctx, payloadPath)
			Expect(err).NotTo(HaveOccurred())

			// Every matched file survives, including the jpg no rule covers
			Expect(result.Summary.FilesDropped).To(Equal(0))
			Expect(result.Granules).To(HaveLen(2))
			Expect(result.Granules[0].Files).To(HaveLen(3))
			for _, file := range result.Granules[0].Files {
				Expect(file.Bucket).To(BeEmpty())
				Expect(file.Type).To(BeEmpty())
			}
		})
	})

	Context("Provider Authentication", func() {
		It("should authenticate listing requests with provider credentials", func() {
			authServer := helpers.NewMockProviderBuilder().
				WithListing("granules/MOD09GQ", granuleA+".hdf").
				WithBasicAuth("daac-user", "daac-pass").
				Build()
			defer authServer.Close()

			payloadPath := helpers.WritePayloadYAML(tempDir, helpers.PayloadOptions{
				Host:     authServer.Host(),
				Port:     authServer.Port(),
				Username: "daac-user",
				Password: "daac-pass",
				Policy:   "replace",
			})

			runner := helpers.NewDiscoveryRunner("")
			result, err := runner.Discover(ctx, payloadPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Granules).To(HaveLen(1))
			Expect(result.Granules[0].GranuleID).To(Equal(granuleA))
		})
	})

	Context("Listing Failures", func() {
		It("should fail the run when the provider path does not exist", func() {
			payloadPath := helpers.WritePayloadYAML(tempDir, helpers.PayloadOptions{
				Host:         providerServer.Host(),
				Port:         providerServer.Port(),
				ProviderPath: "/granules/MISSING",
				Policy:       "replace",
			})

			runner := helpers.NewDiscoveryRunner("")
			result, err := runner.Discover(ctx, payloadPath)
			Expect(err).To(HaveOccurred())
			Expect(result).To(BeNil())

			var discErr *discovery.Error
			Expect(errors.As(err, &discErr)).To(BeTrue())
			Expect(discErr.Stage).To(Equal(discovery.StageListing))
		})
	})
})
