package event

import (
	"fmt"
	"strings"
)

const streamHeader = `<?xml version="1.0" encoding="UTF-8"?>
<tt:MetadataStream xmlns:tt="http://www.onvif.org/ver10/schema">
`

// firstMessage is what a device sends right after the stream opens.
var firstMessage = []byte(streamHeader + `<tt:VideoAnalytics/></tt:MetadataStream>
`)

var pirInit = []byte(streamHeader + `<tt:Event><wsnt:NotificationMessage xmlns:tns1="http://www.onvif.org/ver10/topics" xmlns:tnsaxis="http://www.axis.com/2009/event/topics" xmlns:wsnt="http://docs.oasis-open.org/wsn/b-2" xmlns:wsa5="http://www.w3.org/2005/08/addressing"><wsnt:Topic Dialect="http://docs.oasis-open.org/wsn/t-1/TopicExpression/Simple">tns1:Device/tnsaxis:Sensor/PIR</wsnt:Topic><wsnt:ProducerReference><wsa5:Address>uri://bf32a3b9-e5e7-4d57-a48d-1b5be9ae7b16/ProducerReference</wsa5:Address></wsnt:ProducerReference><wsnt:Message><tt:Message UtcTime="2020-11-03T20:21:48.310748Z" PropertyOperation="Initialized"><tt:Source><tt:SimpleItem Name="sensor" Value="0"/></tt:Source><tt:Key></tt:Key><tt:Data><tt:SimpleItem Name="state" Value="0"/></tt:Data></tt:Message></wsnt:Message></wsnt:NotificationMessage></tt:Event></tt:MetadataStream>
`)

var pirChange = []byte(streamHeader + `<tt:Event><wsnt:NotificationMessage xmlns:tns1="http://www.onvif.org/ver10/topics" xmlns:tnsaxis="http://www.axis.com/2009/event/topics" xmlns:wsnt="http://docs.oasis-open.org/wsn/b-2" xmlns:wsa5="http://www.w3.org/2005/08/addressing"><wsnt:Topic Dialect="http://docs.oasis-open.org/wsn/t-1/TopicExpression/Simple">tns1:Device/tnsaxis:Sensor/PIR</wsnt:Topic><wsnt:ProducerReference><wsa5:Address>uri://bf32a3b9-e5e7-4d57-a48d-1b5be9ae7b16/ProducerReference</wsa5:Address></wsnt:ProducerReference><wsnt:Message><tt:Message UtcTime="2020-11-03T20:21:52.712749Z" PropertyOperation="Changed"><tt:Source><tt:SimpleItem Name="sensor" Value="0"/></tt:Source><tt:Key></tt:Key><tt:Data><tt:SimpleItem Name="state" Value="1"/></tt:Data></tt:Message></wsnt:Message></wsnt:NotificationMessage></tt:Event></tt:MetadataStream>
`)

// message renders a notification the way the device streams it. topic uses
// the device's own prefixes (tns1, tnsaxis).
func message(op, topic string, sources, data []Item) []byte {
	var b strings.Builder
	b.WriteString(streamHeader)
	b.WriteString(`<tt:Event><wsnt:NotificationMessage xmlns:tns1="http://www.onvif.org/ver10/topics" xmlns:tnsaxis="http://www.axis.com/2009/event/topics" xmlns:wsnt="http://docs.oasis-open.org/wsn/b-2" xmlns:wsa5="http://www.w3.org/2005/08/addressing">`)
	fmt.Fprintf(&b, `<wsnt:Topic Dialect="http://docs.oasis-open.org/wsn/t-1/TopicExpression/Simple">%s</wsnt:Topic>`, topic)
	b.WriteString(`<wsnt:ProducerReference><wsa5:Address>uri://bf32a3b9-e5e7-4d57-a48d-1b5be9ae7b16/ProducerReference</wsa5:Address></wsnt:ProducerReference>`)
	fmt.Fprintf(&b, `<wsnt:Message><tt:Message UtcTime="2020-11-03T20:21:48.310748Z" PropertyOperation="%s">`, op)
	b.WriteString(`<tt:Source>`)
	for _, s := range sources {
		fmt.Fprintf(&b, `<tt:SimpleItem Name="%s" Value="%s"/>`, s.Name, s.Value)
	}
	b.WriteString(`</tt:Source><tt:Key></tt:Key><tt:Data>`)
	for _, d := range data {
		fmt.Fprintf(&b, `<tt:SimpleItem Name="%s" Value="%s"/>`, d.Name, d.Value)
	}
	b.WriteString(`</tt:Data></tt:Message></wsnt:Message></wsnt:NotificationMessage></tt:Event></tt:MetadataStream>` + "\n")
	return []byte(b.String())
}

func items(kv ...string) []Item {
	out := make([]Item, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, Item{Name: kv[i], Value: kv[i+1]})
	}
	return out
}

var (
	audioInit = message("Initialized", "tns1:AudioSource/tnsaxis:TriggerLevel",
		items("channel", "1"), items("triggered", "0"))
	dayNightInit = message("Initialized", "tns1:VideoSource/tnsaxis:DayNightVision",
		items("VideoSourceConfigurationToken", "1"), items("day", "1"))
	fenceGuardInit = message("Initialized", "tnsaxis:CameraApplicationPlatform/FenceGuard/Camera1Profile1",
		nil, items("active", "0"))
	lightStatusInit = message("Initialized", "tns1:Device/tnsaxis:Light/Status",
		items("id", "0"), items("state", "OFF"))
	loiteringGuardInit = message("Initialized", "tnsaxis:CameraApplicationPlatform/LoiteringGuard/Camera1Profile1",
		nil, items("active", "0"))
	motionGuardInit = message("Initialized", "tnsaxis:CameraApplicationPlatform/MotionGuard/Camera1ProfileANY",
		nil, items("active", "0"))
	objectAnalyticsInit = message("Initialized", "tnsaxis:CameraApplicationPlatform/ObjectAnalytics/Device1Scenario1",
		nil, items("active", "0"))
	port0Init = message("Initialized", "tns1:Device/tnsaxis:IO/Port",
		items("port", "1"), items("state", "0"))
	portAnyInit = message("Initialized", "tns1:Device/tnsaxis:IO/Port",
		items("port", "ANY"), items("state", "0"))
	ptzMoveInit = message("Initialized", "tns1:PTZController/tnsaxis:Move/Channel_1",
		items("PTZConfigurationToken", "1"), items("is_moving", "0"))
	ptzPresetInit1 = message("Initialized", "tns1:PTZController/tnsaxis:PTZPresets/Channel_1",
		items("PresetToken", "1"), items("on_preset", "1"))
	relayInit = message("Initialized", "tns1:Device/Trigger/Relay",
		items("RelayToken", "3"), items("LogicalState", "inactive"))
	ruleEngineRegionDetectorInit = message("Initialized", "tns1:RuleEngine/MotionRegionDetector/Motion",
		items("VideoSource", "0", "RuleName", "VMD 4: Profile 1"), items("State", "0"))
	storageAlertInit = message("Initialized", "tnsaxis:Storage/Alert",
		items("disk_id", "NetworkShare"), items("overall_health", "-3", "alert", "1"))
	vmd3Init = message("Initialized", "tns1:RuleEngine/tnsaxis:VMD3/vmd3_video_1",
		items("areaid", "0"), items("active", "0"))
	vmd4AnyInit = message("Initialized", "tnsaxis:CameraApplicationPlatform/VMD/Camera1ProfileANY",
		nil, items("active", "0"))
	vmd4AnyChange = message("Changed", "tnsaxis:CameraApplicationPlatform/VMD/Camera1ProfileANY",
		nil, items("active", "1"))
	globalSceneChange = message("Initialized", "tns1:VideoSource/GlobalSceneChange/ImagingService",
		items("Source", "0"), items("State", "0"))
)
