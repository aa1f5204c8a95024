package sim

import (
	"math"
	"math/rand"

	"github.com/san-kum/drivelab/internal/config"
)

// GyroNoiseStd is the standard deviation of the synthesized gyro noise,
// rad/s per sample. Roughly a consumer MEMS part at a 50Hz read rate.
const GyroNoiseStd = 0.02

// Vehicle is a planar bicycle-model plant with the measured motor
// response and a first-order steering servo. State layout:
// [x, y, theta, v, delta] with v the rear axle speed and delta the
// actual steering angle.
type Vehicle struct {
	cal      config.Calibration
	maxSteer float64 // steering angle at full stick, rad

	// fractional encoder tick accumulators, one per axle
	frontTicks, rearTicks float64

	rng *rand.Rand
}

func NewVehicle(cal config.Calibration) *Vehicle {
	wheelbase := cal.LF + cal.LR
	return &Vehicle{
		cal: cal,
		// full stick commands the 1m-radius curvature the stick
		// shaping tops out at
		maxSteer: math.Atan(2 * wheelbase),
	}
}

// Seed arms the sensor noise source. Without it the synthesized sensors
// are exact, which the unit tests rely on; runs seed it so the same seed
// replays the same noise.
func (v *Vehicle) Seed(seed int64) {
	v.rng = rand.New(rand.NewSource(seed))
}

func (v *Vehicle) StateDim() int { return 5 }

// InitialState places the car at the given pose, at rest.
func (v *Vehicle) InitialState(x, y, theta float64) State {
	return State{x, y, theta, 0, 0}
}

// YawRate gives the kinematic yaw rate for a state.
func (v *Vehicle) YawRate(x State) float64 {
	return x[3] * math.Tan(x[4]) / (v.cal.LF + v.cal.LR)
}

func (v *Vehicle) Derive(x State, u Control, t float64) State {
	theta, vel, delta := x[2], x[3], x[4]

	w := vel * math.Tan(delta) / (v.cal.LF + v.cal.LR)

	// steering servo: first-order lag toward the commanded angle at
	// the measured closed-loop bandwidth
	deltaCmd := clampf(u.Steering, -1, 1) * v.maxSteer
	dDelta := (deltaCmd - delta) * v.cal.ServoBW

	// motor: above the dead zone the acceleration gain falls off with
	// speed (back-EMF), matching the linearization the controller
	// inverts; below it the car coasts against drag; negative commands
	// brake while rolling forward
	cmd := clampf(u.Throttle, -1, 1)
	var dv float64
	switch {
	case cmd > v.cal.MotorOffset:
		dv = (v.cal.MotorK1 - v.cal.MotorK2*vel) * (cmd - v.cal.MotorOffset) / (1 - v.cal.MotorOffset)
		dv -= v.cal.MotorK3 * vel * 0.1
	case cmd >= 0:
		dv = -v.cal.MotorK3 * vel * 0.1
	default:
		dv = v.cal.MotorK1 * cmd
		if vel <= 0 {
			dv = 0
		}
	}
	if vel <= 0 && dv < 0 {
		dv = 0 // no reverse
	}

	return State{
		vel * math.Cos(theta),
		vel * math.Sin(theta),
		w,
		dv,
		dDelta,
	}
}

// Sensors synthesizes one cycle's raw sensor sample from the plant
// state, exactly as the acquisition layer would deliver it: gyro z from
// the kinematic yaw rate, a quantized servo position byte, and per-wheel
// encoder tick deltas with fractional carry.
func (v *Vehicle) Sensors(x State, dt float64) (accel, gyro [3]float64, servoPos uint8, wheelDelta [4]uint16) {
	vel, delta := x[3], x[4]
	w := v.YawRate(x)

	gyro[2] = w
	if v.rng != nil {
		gyro[2] += v.rng.NormFloat64() * GyroNoiseStd
	}
	accel[0] = 0
	accel[1] = vel * w // centripetal

	servoPos = uint8(clampf(v.cal.ServoCenter+delta*v.cal.ServoScale+0.5, 0, 255))

	// rear axle travels at v; the front axle leads it by the steering
	// geometry, which is what the slip correction measures
	vFront := vel / math.Max(math.Cos(delta), 0.5)

	v.frontTicks += vFront * dt / v.cal.VScale
	v.rearTicks += vel * dt / v.cal.VScale

	ft := math.Floor(v.frontTicks)
	rt := math.Floor(v.rearTicks)
	v.frontTicks -= ft
	v.rearTicks -= rt

	// both wheels of an axle see the same distance here; the controller
	// averages them anyway
	wheelDelta[0], wheelDelta[1] = uint16(ft), uint16(ft)
	wheelDelta[2], wheelDelta[3] = uint16(rt), uint16(rt)
	return
}

func clampf(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
