package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Armin247/Aliva/models"
)

// 免费逆地理编码服务
const defaultGeocodeURL = "https://api.bigdatacloud.net/data/reverse-geocode-client"

// Resolver 位置解析器：优先精确坐标，其次CDN注入的请求头
type Resolver struct {
	geocodeURL string
	httpClient *http.Client
}

func NewResolver() *Resolver {
	return &Resolver{
		geocodeURL: defaultGeocodeURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// NewResolverWithURL 指定逆地理编码地址（测试用）
func NewResolverWithURL(url string) *Resolver {
	r := NewResolver()
	r.geocodeURL = url
	return r
}

type geocodeResponse struct {
	CountryName string `json:"countryName"`
	City        string `json:"city"`
	Locality    string `json:"locality"`
}

// Resolve 解析本次请求的位置
// 有坐标走逆地理编码，失败退回客户端字段；无坐标退回请求头提示
func (r *Resolver) Resolve(ctx context.Context, header http.Header, loc *models.Location) models.DetectedLocation {
	if loc != nil && loc.Latitude != 0 && loc.Longitude != 0 {
		if detected, err := r.fromCoordinates(ctx, loc.Latitude, loc.Longitude); err == nil {
			if detected.Country == "" {
				detected.Country = loc.Country
			}
			if detected.City == "" {
				detected.City = loc.City
			}
			return detected
		}
	}

	detected := fromHeaders(header)
	if loc != nil {
		if loc.Country != "" {
			detected.Country = loc.Country
		}
		if loc.City != "" {
			detected.City = loc.City
		}
	}
	return detected
}

// fromCoordinates 坐标逆地理编码
func (r *Resolver) fromCoordinates(ctx context.Context, lat, lng float64) (models.DetectedLocation, error) {
	url := fmt.Sprintf("%s?latitude=%f&longitude=%f&localityLanguage=en", r.geocodeURL, lat, lng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.DetectedLocation{}, err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return models.DetectedLocation{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.DetectedLocation{}, fmt.Errorf("geocode status %d", resp.StatusCode)
	}

	var data geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return models.DetectedLocation{}, err
	}

	city := data.City
	if city == "" {
		city = data.Locality
	}
	return models.DetectedLocation{Country: data.CountryName, City: city}, nil
}

// fromHeaders 取CDN/代理注入的地理位置请求头
func fromHeaders(header http.Header) models.DetectedLocation {
	country := header.Get("cf-ipcountry")
	if country == "" {
		country = header.Get("x-vercel-ip-country")
	}
	if country == "" {
		country = header.Get("x-country-code")
	}

	city := header.Get("x-vercel-ip-city")
	if city == "" {
		city = header.Get("cf-ipcity")
	}

	return models.DetectedLocation{Country: country, City: city}
}
