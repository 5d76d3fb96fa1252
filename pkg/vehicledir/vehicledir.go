package vehicledir

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/cordonnx/cordonnx/pkg/database"
	"github.com/cordonnx/cordonnx/pkg/redis_client"
	"github.com/cordonnx/cordonnx/pkg/telematics"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"go.mongodb.org/mongo-driver/bson"
)

const defaultSpeedLimitKmh = 60

// Directory resolves device IMEIs to their registered vehicle record.
// Lookups are cached in Redis, with unknown IMEIs negatively cached so
// unregistered devices do not hammer Mongo on every packet.
type Directory struct {
	Cache *cache.Cache[string]
}

func (d *Directory) Setup() {
	redisStore := redisstore.NewRedis(redis_client.Client, store.WithExpiration(30*time.Minute))

	d.Cache = cache.New[string](redisStore)
}

// Lookup returns the vehicle registered for the IMEI, or nil when the
// device is unknown.
func (d *Directory) Lookup(ctx context.Context, imei string) *telematics.VehicleInfo {
	var vehicle *telematics.VehicleInfo
	cacheKey := fmt.Sprintf("vehicledir/%s", imei)

	vehicleCacheValue, err := d.Cache.Get(ctx, cacheKey)
	if err == nil {
		if vehicleCacheValue == "N/A" {
			return nil
		}

		json.Unmarshal([]byte(vehicleCacheValue), &vehicle)
		return vehicle
	}

	vehiclesCollection := database.GetCollection("vehicle_details")
	vehiclesCollection.FindOne(ctx, bson.M{"IMEI": imei}).Decode(&vehicle)

	if vehicle == nil {
		d.Cache.Set(ctx, cacheKey, "N/A")
	} else {
		vehicleJSON, _ := json.Marshal(vehicle)
		d.Cache.Set(ctx, cacheKey, string(vehicleJSON))
	}

	return vehicle
}

// CANProfile returns the name of the CAN decode profile configured for
// the IMEI's vehicle.
func (d *Directory) CANProfile(ctx context.Context, imei string) string {
	vehicle := d.Lookup(ctx, imei)
	if vehicle == nil {
		return ""
	}

	return vehicle.CANProfile
}

// SpeedLimit returns the vehicle's configured alert speed in km/h,
// falling back to the fleet default when unset or unparsable.
func (d *Directory) SpeedLimit(ctx context.Context, imei string) float64 {
	vehicle := d.Lookup(ctx, imei)
	if vehicle == nil {
		return defaultSpeedLimitKmh
	}

	limit, err := strconv.ParseFloat(vehicle.NormalSpeed, 64)
	if err != nil || limit <= 0 {
		return defaultSpeedLimitKmh
	}

	return limit
}
