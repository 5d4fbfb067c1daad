package integration

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lx-boutique/storefront-api/config"
	"github.com/lx-boutique/storefront-api/models"
	"github.com/lx-boutique/storefront-api/services"
	"github.com/lx-boutique/storefront-api/tests/testutil"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// ProductImageIntegrationTestSuite uploads product images through the S3 image
// service backed by in-memory storage
type ProductImageIntegrationTestSuite struct {
	suite.Suite
	router  *gin.Engine
	db      *gorm.DB
	cfg     *config.Config
	storage *services.MockS3Service
	admin   models.User
}

// SetupSuite runs once before all tests
func (suite *ProductImageIntegrationTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	testutil.MustSetTestEnvironment(suite.T())
}

// SetupTest runs before each test
func (suite *ProductImageIntegrationTestSuite) SetupTest() {
	suite.cfg = testutil.TestConfig()
	suite.db = testutil.SetupTestDB(suite.T())

	suite.storage = services.NewMockS3Service()
	services.InitImageService(suite.storage)

	router, err := newRouter(suite.cfg)
	suite.Require().NoError(err)
	suite.router = router

	suite.admin = testutil.CreateUser(suite.T(), suite.db, "admin@example.com", "Store Admin", models.RoleAdmin)
}

// TearDownTest runs after each test
func (suite *ProductImageIntegrationTestSuite) TearDownTest() {
	services.SetImageService(nil)
}

func (suite *ProductImageIntegrationTestSuite) upload(productID uint, filename string, content []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", filename)
	suite.Require().NoError(err)
	_, err = part.Write(content)
	suite.Require().NoError(err)
	suite.Require().NoError(writer.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/products/%d/images", productID), &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	testutil.WithAdminCookie(req, testutil.IssueToken(suite.T(), suite.cfg, suite.admin))

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

// TestUploadedImageIsServedAsPresignedURL stores the key and renders a link
func (suite *ProductImageIntegrationTestSuite) TestUploadedImageIsServedAsPresignedURL() {
	product := testutil.CreateProduct(suite.T(), suite.db, "Linen Dress", "80.00", 3)

	w := suite.upload(product.ID, "dress.png", []byte("png-bytes"))
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var uploaded struct {
		Key string `json:"key"`
	}
	_, err := parse(w, &uploaded)
	suite.Require().NoError(err)
	suite.True(strings.HasPrefix(uploaded.Key, fmt.Sprintf("products/%d/", product.ID)))
	suite.True(suite.storage.FileExists(uploaded.Key))

	stored := testutil.ReloadProduct(suite.T(), suite.db, product.ID)
	suite.Equal([]string{uploaded.Key}, stored.Images, "the database keeps the storage key")

	w = doJSON(suite.router, http.MethodGet, fmt.Sprintf("/api/v1/products/%d", product.ID), nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var rendered models.Product
	_, err = parse(w, &rendered)
	suite.Require().NoError(err)
	suite.Require().Len(rendered.Images, 1)
	suite.Contains(rendered.Images[0], uploaded.Key)
	suite.Contains(rendered.Images[0], "mock=true")
}

// TestUnsupportedImageTypeIsRejected keeps storage untouched for other formats
func (suite *ProductImageIntegrationTestSuite) TestUnsupportedImageTypeIsRejected() {
	product := testutil.CreateProduct(suite.T(), suite.db, "Linen Dress", "80.00", 3)

	w := suite.upload(product.ID, "dress.gif", []byte("gif-bytes"))
	suite.Equal(http.StatusBadRequest, w.Code)

	body, err := parse(w, nil)
	suite.Require().NoError(err)
	suite.Equal("INVALID_FILE_FORMAT", body.Error.Code)
	suite.Empty(suite.storage.GetUploadedFiles())
	suite.Empty(testutil.ReloadProduct(suite.T(), suite.db, product.ID).Images)
}

// TestDeletedProductHidesFromCatalog soft deletes and keeps its images stored
func (suite *ProductImageIntegrationTestSuite) TestDeletedProductHidesFromCatalog() {
	product := testutil.CreateProduct(suite.T(), suite.db, "Linen Dress", "80.00", 3)
	w := suite.upload(product.ID, "dress.jpg", []byte("jpg-bytes"))
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(suite.router, http.MethodDelete, fmt.Sprintf("/api/v1/products/%d", product.ID), nil, func(req *http.Request) {
		testutil.WithAdminCookie(req, testutil.IssueToken(suite.T(), suite.cfg, suite.admin))
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = doJSON(suite.router, http.MethodGet, fmt.Sprintf("/api/v1/products/%d", product.ID), nil)
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Len(suite.storage.GetUploadedFiles(), 1)
}

// TestProductImageIntegrationSuite runs the product image integration test suite
func TestProductImageIntegrationSuite(t *testing.T) {
	suite.Run(t, new(ProductImageIntegrationTestSuite))
}
